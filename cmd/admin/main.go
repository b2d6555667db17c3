// Administrative commands for the journal database: wipe, bulk PnL
// recalculation and fixture seeding. These run out-of-band against the same
// database as the server.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tradelog/journal-api/internal/database"
	"github.com/tradelog/journal-api/internal/journal"
	"github.com/tradelog/journal-api/internal/types"
)

var dbPath string

func openDB() (*gorm.DB, error) {
	return database.New(dbPath)
}

var rootCmd = &cobra.Command{
	Use:          "admin",
	Short:        "Maintenance commands for the trading journal database",
	SilenceUsage: true,
}

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete all trades and orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		jdb := journal.NewDatabase(db)

		trades, err := jdb.CountTrades()
		if err != nil {
			return err
		}
		orders, err := jdb.CountOrders()
		if err != nil {
			return err
		}

		fmt.Printf("Current state: %d trades, %d orders\n", trades, orders)
		if trades == 0 && orders == 0 {
			fmt.Println("Database is already empty")
			return nil
		}

		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			fmt.Print("This will delete ALL trades and orders. Type 'yes' to confirm: ")
			reader := bufio.NewReader(os.Stdin)
			line, _ := reader.ReadString('\n')
			if strings.TrimSpace(strings.ToLower(line)) != "yes" {
				fmt.Println("Cancelled, database not wiped")
				return nil
			}
		}

		if err := jdb.Wipe(); err != nil {
			return fmt.Errorf("failed to wipe database: %w", err)
		}

		trades, _ = jdb.CountTrades()
		orders, _ = jdb.CountOrders()
		fmt.Printf("Database wiped: %d trades, %d orders remaining\n", trades, orders)
		return nil
	},
}

var recalcCmd = &cobra.Command{
	Use:   "recalc-pnl",
	Short: "Recalculate PnL for all trades using contract multipliers",
	Long: `Recompute every trade's PnL from its prices, quantity and the
instrument multiplier. Useful if trades were created before the multiplier
table changed. Only the pnl field is touched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}

		result, err := journal.NewService(db).RecalculateAllPnL()
		if err != nil {
			return err
		}

		fmt.Printf("Recalculated %d trades: %d updated, %d unchanged\n",
			result.Total, result.Updated, result.Unchanged)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert fixture trades for development",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		svc := journal.NewService(db)

		inserted, skipped := 0, 0
		for _, trade := range seedTrades() {
			t := trade
			err := svc.CreateTrade(&t)
			switch {
			case err == nil:
				inserted++
			case errors.Is(err, journal.ErrDuplicateTrade):
				skipped++
			default:
				return fmt.Errorf("failed to seed trade %s: %w", t.ID, err)
			}
		}

		fmt.Printf("Seeded %d trades (%d already present)\n", inserted, skipped)
		return nil
	},
}

func seedTrades() []types.Trade {
	ts := func(value string) time.Time {
		t, _ := time.Parse("2006-01-02T15:04:05", value)
		return t
	}

	return []types.Trade{
		{
			ID: "TRADE001", AccountID: "ACC01", Symbol: "MGC", Direction: types.DirectionLong,
			EntryTime: ts("2026-01-15T09:30:00"), ExitTime: ts("2026-01-15T15:45:00"),
			EntryPrice: 4231.5, ExitPrice: 4500.0, Quantity: 1, PnL: 2685.0, Strategy: "ICT 22",
		},
		{
			ID: "TRADE002", AccountID: "ACC01", Symbol: "NQ", Direction: types.DirectionLong,
			EntryTime: ts("2026-01-15T10:15:00"), ExitTime: ts("2026-01-15T14:30:00"),
			EntryPrice: 25000.0, ExitPrice: 25674.3, Quantity: 1, PnL: 13486.0, Strategy: "Silver Bullet",
		},
		{
			ID: "TRADE003", AccountID: "ACC01", Symbol: "MGC", Direction: types.DirectionShort,
			EntryTime: ts("2026-01-16T10:00:00"), ExitTime: ts("2026-01-16T14:30:00"),
			EntryPrice: 4550.0, ExitPrice: 4400.0, Quantity: 1, PnL: 1500.0, Strategy: "ICT 22",
		},
		{
			ID: "TRADE004", AccountID: "ACC01", Symbol: "NQ", Direction: types.DirectionShort,
			EntryTime: ts("2026-01-16T11:00:00"), ExitTime: ts("2026-01-16T15:00:00"),
			EntryPrice: 25800.0, ExitPrice: 25650.0, Quantity: 1, PnL: 3000.0, Strategy: "Power Hour",
		},
		{
			ID: "TRADE005", AccountID: "ACC01", Symbol: "MGC", Direction: types.DirectionLong,
			EntryTime: ts("2026-01-17T09:30:00"), ExitTime: ts("2026-01-17T13:00:00"),
			EntryPrice: 4450.0, ExitPrice: 4400.0, Quantity: 1, PnL: -500.0, Strategy: "ICT 22",
		},
	}
}

func main() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "journal.db", "path to the journal database")
	wipeCmd.Flags().Bool("yes", false, "skip the confirmation prompt")

	rootCmd.AddCommand(wipeCmd, recalcCmd, seedCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
