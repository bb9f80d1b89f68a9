package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/wnt/walletd/internal/auth"
	"github.com/wnt/walletd/internal/database"
	"github.com/wnt/walletd/internal/ledger"
	"github.com/wnt/walletd/internal/logger"
	"github.com/wnt/walletd/internal/store"
)

func main() {
	var (
		op        string
		owner     string
		walletArg string
		amountArg string
		address   string
		network   string
		coin      string
		reference string
		password  string
		name      string
		currency  string
	)

	flag.StringVar(&op, "op", "", "Operation: create | deposit | withdraw | send | receive | history")
	flag.StringVar(&owner, "owner", "", "Owner ID the operation runs for (required)")
	flag.StringVar(&walletArg, "wallets", "", "Comma-separated wallet IDs (sweep order for withdraw)")
	flag.StringVar(&amountArg, "amount", "", "Decimal amount")
	flag.StringVar(&address, "address", "", "Destination or source address")
	flag.StringVar(&network, "network", "", "Network for withdraw/send")
	flag.StringVar(&coin, "coin", "", "Coin type for receive")
	flag.StringVar(&reference, "reference", "", "External transfer reference for receive")
	flag.StringVar(&password, "password", "", "Wallet password for protected wallets")
	flag.StringVar(&name, "name", "", "Wallet name for create")
	flag.StringVar(&currency, "currency", "", "Wallet currency for create")
	flag.Parse()

	if op == "" || owner == "" {
		fmt.Println("Usage: walletctl -op <create|deposit|withdraw|send|receive|history> -owner <id> [flags]")
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment variables")
	}

	lg := logger.New(getLogLevel())

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	st := store.New(db)
	options := []ledger.Option{ledger.WithVerifier(auth.Verifier{})}
	if feeStr := os.Getenv("WITHDRAWAL_FEE"); feeStr != "" {
		fee, err := decimal.NewFromString(feeStr)
		if err != nil {
			log.Fatalf("Invalid WITHDRAWAL_FEE: %v", err)
		}
		options = append(options, ledger.WithFee(fee))
	}
	engine := ledger.New(st, lg, options...)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sess := ledger.Session{OwnerID: owner}
	wallets := parseWalletIDs(walletArg)

	switch op {
	case "create":
		hash := ""
		if password != "" {
			hash, err = auth.HashPassword(password)
			if err != nil {
				log.Fatalf("Failed to hash password: %v", err)
			}
		}
		w, err := engine.CreateWallet(ctx, sess, ledger.CreateWalletRequest{
			Name:         name,
			Currency:     currency,
			PasswordHash: hash,
		})
		if err != nil {
			log.Fatalf("Create failed: %v", err)
		}
		fmt.Printf("Created wallet %s (%s)\n", w.ID, w.Currency)

	case "deposit":
		requireWallets(wallets, 1)
		res, err := engine.Deposit(ctx, sess, ledger.DepositRequest{
			WalletID: wallets[0],
			Amount:   parseAmount(amountArg),
		})
		if err != nil {
			log.Fatalf("Deposit failed: %v", err)
		}
		printResult(res)

	case "withdraw":
		requireWallets(wallets, 1)
		res, err := engine.Withdraw(ctx, sess, ledger.WithdrawRequest{
			WalletIDs: wallets,
			Amount:    parseAmount(amountArg),
			Address:   address,
			Network:   network,
			Password:  password,
		})
		if err != nil {
			log.Fatalf("Withdraw failed: %v", err)
		}
		printResult(res)

	case "send":
		requireWallets(wallets, 1)
		res, err := engine.Send(ctx, sess, ledger.SendRequest{
			WalletID: wallets[0],
			Amount:   parseAmount(amountArg),
			Address:  address,
			Network:  network,
			Password: password,
		})
		if err != nil {
			log.Fatalf("Send failed: %v", err)
		}
		printResult(res)

	case "receive":
		requireWallets(wallets, 1)
		t, err := engine.Receive(ctx, sess, ledger.ReceiveRequest{
			WalletID:      wallets[0],
			Amount:        parseAmount(amountArg),
			CoinType:      coin,
			SourceAddress: address,
			Reference:     reference,
		})
		if err != nil {
			log.Fatalf("Receive failed: %v", err)
		}
		fmt.Printf("Recorded pending receive %s: %s %s\n", t.ID, t.Amount, t.CoinType)

	case "history":
		requireWallets(wallets, 1)
		txs, err := st.ListTransactionsByWallet(ctx, wallets[0])
		if err != nil {
			log.Fatalf("History failed: %v", err)
		}
		for _, t := range txs {
			fmt.Printf("%s  %-10s %-10s %12s  %s\n",
				t.CreatedAt.Format(time.RFC3339), t.Type, t.Status, t.Amount, t.ID)
		}

	default:
		log.Fatalf("Unknown operation: %s", op)
	}
}

func getLogLevel() string {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		return level
	}
	return "warn"
}

func parseWalletIDs(arg string) []uuid.UUID {
	if arg == "" {
		return nil
	}
	parts := strings.Split(arg, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, p := range parts {
		id, err := uuid.Parse(strings.TrimSpace(p))
		if err != nil {
			log.Fatalf("Invalid wallet ID %q: %v", p, err)
		}
		ids = append(ids, id)
	}
	return ids
}

func requireWallets(ids []uuid.UUID, n int) {
	if len(ids) < n {
		log.Fatalf("Operation requires at least %d wallet ID(s), got %d", n, len(ids))
	}
}

func parseAmount(arg string) decimal.Decimal {
	amount, err := decimal.NewFromString(arg)
	if err != nil {
		log.Fatalf("Invalid amount %q: %v", arg, err)
	}
	return amount
}

func printResult(res *ledger.Result) {
	for _, t := range res.Transactions {
		fmt.Printf("Transaction %s: %s %s (%s)\n", t.ID, t.Type, t.Amount, t.Status)
	}
	for _, w := range res.Wallets {
		fmt.Printf("Wallet %s balance: %s %s\n", w.ID, w.Balance, w.Currency)
	}
}
