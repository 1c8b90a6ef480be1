package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"solarb/internal/pnl"
)

// ErrNotConfigured indicates the storage pool was not initialised.
var ErrNotConfigured = errors.New("storage: pool not configured")

const (
	insertTradeSQL = `INSERT INTO trades (
        executed_at,
        pair,
        buy_venue,
        sell_venue,
        buy_price,
        sell_price,
        size_usd,
        profit_usd,
        outcome
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    );`

	listRecentTradesSQL = `SELECT
        executed_at, pair, buy_venue, sell_venue,
        buy_price, sell_price, size_usd, profit_usd, outcome
    FROM trades
    ORDER BY executed_at DESC
    LIMIT $1;`

	listTradesBetweenSQL = `SELECT
        executed_at, pair, buy_venue, sell_venue,
        buy_price, sell_price, size_usd, profit_usd, outcome
    FROM trades
    WHERE executed_at >= $1
      AND executed_at < $2
    ORDER BY executed_at;`

	countTradesSQL = `SELECT COUNT(*) FROM trades;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`

	createTradesSQL = `CREATE TABLE IF NOT EXISTS trades (
        id          BIGSERIAL PRIMARY KEY,
        executed_at TIMESTAMPTZ NOT NULL,
        pair        TEXT        NOT NULL,
        buy_venue   TEXT        NOT NULL,
        sell_venue  TEXT        NOT NULL,
        buy_price   NUMERIC     NOT NULL,
        sell_price  NUMERIC     NOT NULL,
        size_usd    NUMERIC     NOT NULL,
        profit_usd  NUMERIC     NOT NULL,
        outcome     TEXT        NOT NULL
    );
    CREATE INDEX IF NOT EXISTS trades_executed_at_idx ON trades (executed_at DESC);`
)

// TradeStore defines operations on the persisted trade journal.
type TradeStore interface {
	InsertTrade(ctx context.Context, rec pnl.TradeRecord) error
	ListRecentTrades(ctx context.Context, limit int) ([]pnl.TradeRecord, error)
	ListTradesBetween(ctx context.Context, from, to time.Time) ([]pnl.TradeRecord, error)
	CountTrades(ctx context.Context) (int64, error)
}

// Store aggregates access to the trade journal.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// EnsureSchema creates the trades table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, createTradesSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// InsertTrade appends a trade record to the journal.
func (s *Store) InsertTrade(ctx context.Context, rec pnl.TradeRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, insertTradeSQL,
		rec.Timestamp,
		rec.Pair,
		rec.BuyVenue,
		rec.SellVenue,
		rec.BuyPrice.String(),
		rec.SellPrice.String(),
		rec.SizeUsd.String(),
		rec.ProfitUsd.String(),
		string(rec.Outcome),
	)
	if execErr != nil {
		return fmt.Errorf("insert trade: %w", execErr)
	}
	return nil
}

// ListRecentTrades lists the most recent trades ordered by descending time.
func (s *Store) ListRecentTrades(ctx context.Context, limit int) ([]pnl.TradeRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentTradesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent trades: %w", queryErr)
	}
	defer rows.Close()

	return collectTrades(rows, limit)
}

// ListTradesBetween lists trades within a time window, oldest first.
func (s *Store) ListTradesBetween(ctx context.Context, from, to time.Time) ([]pnl.TradeRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listTradesBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list trades between: %w", queryErr)
	}
	defer rows.Close()

	return collectTrades(rows, 0)
}

// CountTrades counts persisted trades.
func (s *Store) CountTrades(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countTradesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count trades: %w", scanErr)
	}
	return count, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a
// release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func collectTrades(rows pgx.Rows, hint int) ([]pnl.TradeRecord, error) {
	trades := make([]pnl.TradeRecord, 0, hint)
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return trades, nil
}

func scanTrade(rows pgx.Rows) (pnl.TradeRecord, error) {
	var (
		rec     pnl.TradeRecord
		buyStr  string
		sellStr string
		sizeStr string
		pnlStr  string
		outcome string
	)

	if err := rows.Scan(
		&rec.Timestamp,
		&rec.Pair,
		&rec.BuyVenue,
		&rec.SellVenue,
		&buyStr,
		&sellStr,
		&sizeStr,
		&pnlStr,
		&outcome,
	); err != nil {
		return pnl.TradeRecord{}, err
	}

	var err error
	if rec.BuyPrice, err = decimal.NewFromString(buyStr); err != nil {
		return pnl.TradeRecord{}, fmt.Errorf("parse buy price: %w", err)
	}
	if rec.SellPrice, err = decimal.NewFromString(sellStr); err != nil {
		return pnl.TradeRecord{}, fmt.Errorf("parse sell price: %w", err)
	}
	if rec.SizeUsd, err = decimal.NewFromString(sizeStr); err != nil {
		return pnl.TradeRecord{}, fmt.Errorf("parse size: %w", err)
	}
	if rec.ProfitUsd, err = decimal.NewFromString(pnlStr); err != nil {
		return pnl.TradeRecord{}, fmt.Errorf("parse profit: %w", err)
	}
	rec.Outcome = pnl.Outcome(outcome)

	return rec, nil
}
