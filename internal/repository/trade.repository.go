package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"stratsim/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// TradeSink receives every executed backtest fill, append-only.
type TradeSink interface {
	Add(ctx context.Context, trade domain.BacktestTrade) error
	List(ctx context.Context, backtestID uuid.UUID) ([]domain.BacktestTrade, error)
}

type memoryTradeSink struct {
	mu     sync.Mutex
	trades []domain.BacktestTrade
}

func NewMemoryTradeSink() TradeSink {
	return &memoryTradeSink{}
}

func (s *memoryTradeSink) Add(_ context.Context, trade domain.BacktestTrade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, trade)
	return nil
}

func (s *memoryTradeSink) List(_ context.Context, backtestID uuid.UUID) ([]domain.BacktestTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.BacktestTrade{}
	for _, trade := range s.trades {
		if trade.BacktestID == backtestID {
			out = append(out, trade)
		}
	}
	return out, nil
}

type sqliteTradeSink struct {
	db *sql.DB
}

// NewSQLiteTradeSink opens (or creates) a sqlite trade log at path.
func NewSQLiteTradeSink(path string) (TradeSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trade db %s: %w", path, err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS backtest_trade (
			trade_id     TEXT PRIMARY KEY,
			backtest_id  TEXT NOT NULL,
			date         TEXT NOT NULL,
			symbol       TEXT NOT NULL,
			side         TEXT NOT NULL,
			quantity     INTEGER NOT NULL,
			price        TEXT NOT NULL,
			amount       TEXT NOT NULL,
			realized_pnl TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_backtest_trade_backtest_id
			ON backtest_trade (backtest_id);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create trade table: %w", err)
	}

	return &sqliteTradeSink{db: db}, nil
}

func (s *sqliteTradeSink) Add(ctx context.Context, trade domain.BacktestTrade) error {
	var realizedPnl *string
	if trade.RealizedPnL != nil {
		str := trade.RealizedPnL.String()
		realizedPnl = &str
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backtest_trade
			(trade_id, backtest_id, date, symbol, side, quantity, price, amount, realized_pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.TradeID.String(),
		trade.BacktestID.String(),
		trade.Date.Format(time.DateOnly),
		trade.Symbol,
		string(trade.Side),
		trade.Quantity,
		trade.Price.String(),
		trade.Amount.String(),
		realizedPnl,
	)
	if err != nil {
		return fmt.Errorf("failed to record trade %s: %w", trade.TradeID, err)
	}
	return nil
}

func (s *sqliteTradeSink) List(ctx context.Context, backtestID uuid.UUID) ([]domain.BacktestTrade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trade_id, backtest_id, date, symbol, side, quantity, price, amount, realized_pnl
		FROM backtest_trade
		WHERE backtest_id = ?
		ORDER BY date, trade_id`,
		backtestID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades for %s: %w", backtestID, err)
	}
	defer rows.Close()

	out := []domain.BacktestTrade{}
	for rows.Next() {
		var (
			tradeIDStr    string
			backtestIDStr string
			dateStr       string
			symbol        string
			sideStr       string
			quantity      int64
			priceStr      string
			amountStr     string
			realizedStr   *string
		)
		if err := rows.Scan(&tradeIDStr, &backtestIDStr, &dateStr, &symbol, &sideStr, &quantity, &priceStr, &amountStr, &realizedStr); err != nil {
			return nil, err
		}

		trade, err := parseTradeRow(tradeIDStr, backtestIDStr, dateStr, symbol, sideStr, quantity, priceStr, amountStr, realizedStr)
		if err != nil {
			return nil, err
		}
		out = append(out, *trade)
	}
	return out, rows.Err()
}

func parseTradeRow(tradeIDStr, backtestIDStr, dateStr, symbol, sideStr string, quantity int64, priceStr, amountStr string, realizedStr *string) (*domain.BacktestTrade, error) {
	tradeID, err := uuid.Parse(tradeIDStr)
	if err != nil {
		return nil, fmt.Errorf("bad trade id %q: %w", tradeIDStr, err)
	}
	backtestID, err := uuid.Parse(backtestIDStr)
	if err != nil {
		return nil, fmt.Errorf("bad backtest id %q: %w", backtestIDStr, err)
	}
	date, err := time.Parse(time.DateOnly, dateStr)
	if err != nil {
		return nil, fmt.Errorf("bad trade date %q: %w", dateStr, err)
	}
	side, err := domain.NewTradeSide(sideStr)
	if err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("bad trade price %q: %w", priceStr, err)
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("bad trade amount %q: %w", amountStr, err)
	}

	trade := &domain.BacktestTrade{
		TradeID:    tradeID,
		BacktestID: backtestID,
		Date:       date,
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		Amount:     amount,
	}
	if realizedStr != nil {
		realized, err := decimal.NewFromString(*realizedStr)
		if err != nil {
			return nil, fmt.Errorf("bad realized pnl %q: %w", *realizedStr, err)
		}
		trade.RealizedPnL = &realized
	}
	return trade, nil
}
