package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"stratsim/api"
	"stratsim/internal/app"
	"stratsim/internal/logger"
	"stratsim/internal/repository"
	"stratsim/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stratsim",
	Short: "factor-based strategy scoring and backtesting",
}

var (
	pricesDir    string
	strategyPath string
	startStr     string
	endStr       string
	initialCash  float64
	commission   float64
	slippage     float64
	tradesDBPath string
	riskSizing   bool
	apiPort      int
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "replay a strategy over historical bars and print its performance",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.New()
		ctx := context.WithValue(cmd.Context(), logger.ContextKey, log)

		start, err := time.Parse(time.DateOnly, startStr)
		if err != nil {
			return fmt.Errorf("could not parse --start: %w", err)
		}
		end, err := time.Parse(time.DateOnly, endStr)
		if err != nil {
			return fmt.Errorf("could not parse --end: %w", err)
		}

		strategy, err := repository.LoadStrategyConfig(strategyPath)
		if err != nil {
			return err
		}

		provider, err := repository.NewCSVPriceRepository(pricesDir)
		if err != nil {
			return err
		}

		var tradeSink repository.TradeSink = repository.NewMemoryTradeSink()
		if tradesDBPath != "" {
			tradeSink, err = repository.NewSQLiteTradeSink(tradesDBPath)
			if err != nil {
				return err
			}
		}

		handler := app.NewBacktestHandler(service.NewPriceService(provider), tradeSink)
		if riskSizing {
			handler.Sizer = app.RiskAwareSizer
		}

		result, err := handler.Run(ctx, app.BacktestInput{
			BacktestID:  uuid.New(),
			Strategy:    *strategy,
			Start:       start,
			End:         end,
			InitialCash: decimal.NewFromFloat(initialCash),
			Commission:  decimal.NewFromFloat(commission),
			Slippage:    decimal.NewFromFloat(slippage),
		})
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(result.Performance, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "serve the backtest and signal endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		handler, err := initializeDependencies()
		if err != nil {
			return err
		}
		return handler.StartApi(apiPort)
	},
}

// initializeDependencies wires the API from the environment: CSV prices
// when STRATSIM_PRICES_DIR is set, the alpaca market-data client
// otherwise.
func initializeDependencies() (*api.ApiHandler, error) {
	var (
		provider repository.PriceProvider
		err      error
	)
	if dir := os.Getenv("STRATSIM_PRICES_DIR"); dir != "" {
		provider, err = repository.NewCSVPriceRepository(dir)
		if err != nil {
			return nil, err
		}
	} else {
		apiKey := os.Getenv("APCA_API_KEY_ID")
		apiSecret := os.Getenv("APCA_API_SECRET_KEY")
		if apiKey == "" || apiSecret == "" {
			return nil, fmt.Errorf("set STRATSIM_PRICES_DIR or APCA_API_KEY_ID/APCA_API_SECRET_KEY")
		}
		provider = repository.NewAlpacaPriceRepository(apiKey, apiSecret)
	}

	return &api.ApiHandler{
		BacktestHandler: app.NewBacktestHandler(service.NewPriceService(provider), repository.NewMemoryTradeSink()),
		PriceProvider:   provider,
	}, nil
}

func init() {
	backtestCmd.Flags().StringVar(&pricesDir, "prices", "", "directory of <SYMBOL>.csv bar files")
	backtestCmd.Flags().StringVar(&strategyPath, "strategy", "", "strategy yaml file")
	backtestCmd.Flags().StringVar(&startStr, "start", "", "start date (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&endStr, "end", "", "end date (YYYY-MM-DD)")
	backtestCmd.Flags().Float64Var(&initialCash, "cash", 100000, "starting cash")
	backtestCmd.Flags().Float64Var(&commission, "commission", 0, "flat commission per trade")
	backtestCmd.Flags().Float64Var(&slippage, "slippage", 0, "fractional slippage per fill")
	backtestCmd.Flags().StringVar(&tradesDBPath, "trades-db", "", "optional sqlite file for the trade log")
	backtestCmd.Flags().BoolVar(&riskSizing, "risk-sizing", false, "size buys from the strategy risk config instead of the fixed 10% of cash")
	for _, flag := range []string{"prices", "strategy", "start", "end"} {
		if err := backtestCmd.MarkFlagRequired(flag); err != nil {
			panic(err)
		}
	}

	apiCmd.Flags().IntVar(&apiPort, "port", 3009, "port to listen on")

	rootCmd.AddCommand(backtestCmd)
	rootCmd.AddCommand(apiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
