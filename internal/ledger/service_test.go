package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsyourap/atmledger/internal/domain"
	"github.com/itsyourap/atmledger/internal/ledger"
	"github.com/itsyourap/atmledger/internal/store"
	"github.com/itsyourap/atmledger/internal/testutil"
)

func TestAuthenticate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := ledger.NewService(store.NewStore(db))
	ctx := context.Background()

	testutil.SeedTestAccount(t, db, "alice", "Alice", "1234", 10000)

	sess, err := svc.Authenticate(ctx, "alice", "1234")
	require.NoError(t, err)
	assert.Equal(t, "Alice", sess.Account().UserName)
	assert.Equal(t, int64(10000), sess.Account().Balance)

	_, err = svc.Authenticate(ctx, "alice", "0000")
	assert.ErrorIs(t, err, domain.ErrAuthFailed)

	_, err = svc.Authenticate(ctx, "mallory", "1234")
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
}

func TestWithdraw_InsufficientFundsLeavesBalanceUnchanged(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := ledger.NewService(store.NewStore(db))
	ctx := context.Background()

	a := testutil.SeedTestAccount(t, db, "alice", "Alice", "1234", 10000)
	sess, err := svc.Authenticate(ctx, "alice", "1234")
	require.NoError(t, err)

	err = svc.Withdraw(ctx, sess, 15000)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, int64(10000), sess.Account().Balance)
	assert.Equal(t, int64(10000), testutil.GetAccountBalance(t, db, a.ID))
	assert.Empty(t, sess.Account().Transactions)
}

func TestDepositThenWithdrawRoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := ledger.NewService(store.NewStore(db))
	ctx := context.Background()

	a := testutil.SeedTestAccount(t, db, "alice", "Alice", "1234", 10000)
	sess, err := svc.Authenticate(ctx, "alice", "1234")
	require.NoError(t, err)

	require.NoError(t, svc.Deposit(ctx, sess, 2550))
	assert.Equal(t, int64(12550), sess.Account().Balance)

	require.NoError(t, svc.Withdraw(ctx, sess, 2550))
	assert.Equal(t, int64(10000), sess.Account().Balance)

	assert.Equal(t, int64(10000), testutil.GetAccountBalance(t, db, a.ID))
	assert.Equal(t, 2, testutil.CountTransactions(t, db, a.ID))
	assert.Len(t, sess.Account().Transactions, 2)
}

func TestTransfer_MovesFundsAndRecordsBothLegs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := ledger.NewService(store.NewStore(db))
	ctx := context.Background()

	a := testutil.SeedTestAccount(t, db, "alice", "Alice", "1234", 10000)
	b := testutil.SeedTestAccount(t, db, "bob", "Bob", "4321", 5000)

	sess, err := svc.Authenticate(ctx, "alice", "1234")
	require.NoError(t, err)

	require.NoError(t, svc.Transfer(ctx, sess, "bob", 4000))

	assert.Equal(t, int64(6000), sess.Account().Balance)
	assert.Equal(t, int64(6000), testutil.GetAccountBalance(t, db, a.ID))
	assert.Equal(t, int64(9000), testutil.GetAccountBalance(t, db, b.ID))

	aliceHistory, err := svc.History(ctx, sess)
	require.NoError(t, err)
	require.Len(t, aliceHistory, 1)
	assert.Equal(t, domain.TypeTransferWithdraw, aliceHistory[0].Transaction.Type)
	assert.Equal(t, int64(4000), aliceHistory[0].Transaction.Amount)
	assert.Equal(t, "To", aliceHistory[0].Direction)
	assert.Equal(t, "Bob", aliceHistory[0].CounterpartyName)
	assert.Equal(t, "bob", aliceHistory[0].CounterpartyUserID)

	bobSess, err := svc.Authenticate(ctx, "bob", "4321")
	require.NoError(t, err)
	bobHistory, err := svc.History(ctx, bobSess)
	require.NoError(t, err)
	require.Len(t, bobHistory, 1)
	assert.Equal(t, domain.TypeTransferDeposit, bobHistory[0].Transaction.Type)
	assert.Equal(t, int64(4000), bobHistory[0].Transaction.Amount)
	assert.Equal(t, "From", bobHistory[0].Direction)
	assert.Equal(t, "Alice", bobHistory[0].CounterpartyName)
	assert.Equal(t, "alice", bobHistory[0].CounterpartyUserID)
}

func TestTransfer_UnknownRecipientPostsNothing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := ledger.NewService(store.NewStore(db))
	ctx := context.Background()

	a := testutil.SeedTestAccount(t, db, "alice", "Alice", "1234", 10000)
	sess, err := svc.Authenticate(ctx, "alice", "1234")
	require.NoError(t, err)

	err = svc.Transfer(ctx, sess, "nonexistent-user", 1000)
	require.ErrorIs(t, err, domain.ErrUnknownRecipient)

	assert.Equal(t, int64(10000), testutil.GetAccountBalance(t, db, a.ID))
	assert.Equal(t, 0, testutil.CountTransactions(t, db, a.ID))
}

func TestTransfer_Rejections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := ledger.NewService(store.NewStore(db))
	ctx := context.Background()

	testutil.SeedTestAccount(t, db, "alice", "Alice", "1234", 1000)
	testutil.SeedTestAccount(t, db, "bob", "Bob", "4321", 0)

	sess, err := svc.Authenticate(ctx, "alice", "1234")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Transfer(ctx, sess, "alice", 100), domain.ErrSelfTransfer)
	assert.ErrorIs(t, svc.Transfer(ctx, sess, "bob", 5000), domain.ErrInsufficientFunds)
	assert.ErrorIs(t, svc.Transfer(ctx, sess, "bob", 0), domain.ErrInvalidAmount)
	assert.ErrorIs(t, svc.Transfer(ctx, sess, "bob", -50), domain.ErrInvalidAmount)

	assert.Equal(t, int64(1000), sess.Account().Balance)
}

func TestHistory_NewestFirstAndIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := ledger.NewService(store.NewStore(db))
	ctx := context.Background()

	testutil.SeedTestAccount(t, db, "alice", "Alice", "1234", 0)
	sess, err := svc.Authenticate(ctx, "alice", "1234")
	require.NoError(t, err)

	require.NoError(t, svc.Deposit(ctx, sess, 100))
	require.NoError(t, svc.Deposit(ctx, sess, 200))
	require.NoError(t, svc.Deposit(ctx, sess, 300))

	first, err := svc.History(ctx, sess)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, int64(300), first[0].Transaction.Amount)
	assert.Equal(t, int64(100), first[2].Transaction.Amount)

	second, err := svc.History(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestQuarantineBlocksWritesUntilReconciled(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := ledger.NewService(store.NewStore(db))
	ctx := context.Background()

	a := testutil.SeedTestAccount(t, db, "alice", "Alice", "1234", 0)
	sess, err := svc.Authenticate(ctx, "alice", "1234")
	require.NoError(t, err)

	require.NoError(t, svc.Deposit(ctx, sess, 5000))

	// Something outside the posting path mangles the stored balance. The
	// next successful posting notices the divergence.
	testutil.CorruptBalance(t, db, a.ID, 123)

	err = svc.Deposit(ctx, sess, 1000)
	require.ErrorIs(t, err, domain.ErrInvariantViolation)

	assert.ErrorIs(t, svc.Withdraw(ctx, sess, 100), domain.ErrAccountQuarantined)
	assert.ErrorIs(t, svc.Deposit(ctx, sess, 100), domain.ErrAccountQuarantined)

	// Reconciling against a still-broken balance keeps the block in place.
	assert.ErrorIs(t, svc.Reconcile(ctx, a.ID), domain.ErrInvariantViolation)

	// Restore the stored balance to match the history, then reconcile.
	testutil.CorruptBalance(t, db, a.ID, 6000)
	require.NoError(t, svc.Reconcile(ctx, a.ID))
	require.NoError(t, svc.Withdraw(ctx, sess, 100))
}
