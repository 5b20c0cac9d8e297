// Command atm is the interactive terminal front end: a PIN prompt and a
// line-based menu over the ledger service. All real work happens in
// internal/ledger and internal/store; this binary only wires them up,
// reads lines, and prints results.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/itsyourap/atmledger/internal/config"
	"github.com/itsyourap/atmledger/internal/domain"
	"github.com/itsyourap/atmledger/internal/ledger"
	"github.com/itsyourap/atmledger/internal/logging"
	"github.com/itsyourap/atmledger/internal/store"
)

func main() {
	seed := flag.Bool("seed", false, "insert demo accounts if absent")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("atm", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DatabaseURL, store.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetimeS) * time.Second,
	})
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Bootstrap(ctx); err != nil {
		slog.Error("failed to bootstrap schema", "error", err)
		os.Exit(1)
	}
	if *seed {
		if err := st.Seed(ctx); err != nil {
			slog.Error("failed to seed demo accounts", "error", err)
			os.Exit(1)
		}
	}

	if err := run(ctx, ledger.NewService(st)); err != nil {
		slog.Error("session ended with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, svc *ledger.Service) error {
	in := bufio.NewScanner(os.Stdin)

	fmt.Println("Welcome to the ATM")
	fmt.Println("---------------------------")

	userID, ok := prompt(in, "Please Enter User ID: ")
	if !ok {
		return nil
	}
	pin, ok := prompt(in, "Please Enter your PIN: ")
	if !ok {
		return nil
	}

	sess, err := svc.Authenticate(ctx, userID, pin)
	if err != nil {
		if errors.Is(err, domain.ErrAuthFailed) {
			fmt.Println("Invalid User ID or PIN")
			return nil
		}
		return err
	}

	for ctx.Err() == nil {
		account := sess.Account()
		fmt.Println("---------------------------")
		fmt.Printf("Welcome %s\n", account.UserName)
		fmt.Printf("Your current balance is: %s\n", domain.FormatAmount(account.Balance))
		fmt.Println("---------------------------")
		fmt.Println("1. Withdraw")
		fmt.Println("2. Deposit")
		fmt.Println("3. Transfer")
		fmt.Println("4. Show Transaction History")
		fmt.Println("5. Exit")

		choice, ok := prompt(in, "Enter your choice: ")
		if !ok {
			return nil
		}
		fmt.Println("---------------------------")

		switch choice {
		case "1":
			withdraw(ctx, svc, sess, in)
		case "2":
			deposit(ctx, svc, sess, in)
		case "3":
			transfer(ctx, svc, sess, in)
		case "4":
			showHistory(ctx, svc, sess)
		case "5":
			fmt.Println("Exiting...")
			return nil
		default:
			fmt.Println("Invalid choice")
		}
	}
	return nil
}

func withdraw(ctx context.Context, svc *ledger.Service, sess *ledger.Session, in *bufio.Scanner) {
	amount, ok := promptAmount(in, "Enter amount to withdraw: ")
	if !ok {
		return
	}
	if err := svc.Withdraw(ctx, sess, amount); err != nil {
		printFailure("Withdraw", err)
		return
	}
	fmt.Println("Withdraw successful")
	fmt.Println("Please collect your cash")
}

func deposit(ctx context.Context, svc *ledger.Service, sess *ledger.Session, in *bufio.Scanner) {
	amount, ok := promptAmount(in, "Enter amount to deposit: ")
	if !ok {
		return
	}
	if err := svc.Deposit(ctx, sess, amount); err != nil {
		printFailure("Deposit", err)
		return
	}
	fmt.Println("Deposit successful")
}

func transfer(ctx context.Context, svc *ledger.Service, sess *ledger.Session, in *bufio.Scanner) {
	recipient, ok := prompt(in, "Enter User ID of recipient: ")
	if !ok {
		return
	}
	amount, ok := promptAmount(in, "Enter amount to transfer: ")
	if !ok {
		return
	}
	if err := svc.Transfer(ctx, sess, recipient, amount); err != nil {
		printFailure("Transfer", err)
		return
	}
	fmt.Println("Transfer successful")
}

func showHistory(ctx context.Context, svc *ledger.Service, sess *ledger.Session) {
	entries, err := svc.History(ctx, sess)
	if err != nil {
		printFailure("History", err)
		return
	}

	fmt.Println("Transaction History")
	fmt.Println("---------------------------")
	for _, e := range entries {
		fmt.Println(e.Transaction.Type)
		fmt.Printf("Amount: %s\n", domain.FormatAmount(e.Transaction.Amount))
		if e.Direction != "" {
			fmt.Printf("%s: %s [%s]\n", e.Direction, e.CounterpartyName, e.CounterpartyUserID)
		}
		fmt.Println()
	}
}

func printFailure(op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		fmt.Println("Insufficient balance")
	case errors.Is(err, domain.ErrUnknownRecipient):
		fmt.Println("Invalid User ID")
	case errors.Is(err, domain.ErrSelfTransfer):
		fmt.Println("Cannot transfer to your own account")
	case errors.Is(err, domain.ErrInvalidAmount):
		fmt.Println("Invalid amount")
	case errors.Is(err, domain.ErrAccountQuarantined):
		fmt.Println("Account is locked pending reconciliation")
	default:
		fmt.Printf("%s failed\n", op)
		slog.Error("operation failed", "op", op, "error", err)
	}
}

func prompt(in *bufio.Scanner, label string) (string, bool) {
	fmt.Print(label)
	if !in.Scan() {
		return "", false
	}
	return strings.TrimSpace(in.Text()), true
}

func promptAmount(in *bufio.Scanner, label string) (int64, bool) {
	raw, ok := prompt(in, label)
	if !ok {
		return 0, false
	}
	amount, err := domain.ParseAmount(raw)
	if err != nil {
		fmt.Println("Invalid amount")
		return 0, false
	}
	return amount, true
}
