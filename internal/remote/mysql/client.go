// Package mysql stores entry rows in a MySQL table, as an alternative
// append-only remote to the spreadsheet.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	drv "github.com/go-sql-driver/mysql"

	"github.com/Tiliavir/trivial-pay-tracker/internal/logger"
	"github.com/Tiliavir/trivial-pay-tracker/internal/model"
	"github.com/Tiliavir/trivial-pay-tracker/internal/remote"
)

// Client implements remote.Store on the pay_entries table.
type Client struct {
	db  *sql.DB
	log *log.Logger
	now func() time.Time
}

// Options tunes a Client. The zero value is usable.
type Options struct {
	Logger *log.Logger
	Now    func() time.Time
}

// Connect opens a MySQL connection for dsn, pings it and applies pending
// migrations. Example DSN: user:pass@tcp(host:3306)/dbname
func Connect(ctx context.Context, dsn string, opts Options) (*Client, error) {
	if dsn == "" {
		return nil, errors.New("mysql: DSN is required")
	}
	cfg, err := drv.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: invalid DSN: %w", err)
	}
	connector, err := drv.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	l := logger.OrDiscard(opts.Logger)
	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(c); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}
	if err := Migrate(ctx, db, l); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql: migrate: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{db: db, log: l, now: now}, nil
}

// Save inserts one row for e stamped with the current time.
func (c *Client) Save(ctx context.Context, e model.Entry) (remote.Confirmation, error) {
	ts := c.now().UTC()
	row := remote.EncodeRow(e, ts)

	const q = `
INSERT INTO pay_entries
  (entry_date, hours, rate_type, rate, pay, captured_at)
VALUES
  (?, ?, ?, ?, ?, ?)`
	res, err := c.db.ExecContext(ctx, q, row...)
	if err != nil {
		return remote.Confirmation{}, remote.Failure("save", err)
	}

	conf := remote.Confirmation{Timestamp: ts}
	if id, err := res.LastInsertId(); err == nil {
		conf.Range = fmt.Sprintf("pay_entries#%d", id)
	}
	c.log.Debug("inserted row", "range", conf.Range, "date", e.Date)
	return conf, nil
}

// Fetch reads all rows in insertion order and maps them through the shared
// row codec. There is no header row.
func (c *Client) Fetch(ctx context.Context) ([]model.Entry, error) {
	const q = `
SELECT entry_date, hours, rate_type, rate, pay, captured_at
FROM pay_entries
ORDER BY id`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, remote.Failure("fetch", err)
	}
	defer rows.Close()

	var raw [][]any
	for rows.Next() {
		var cells [remote.NumColumns]sql.NullString
		if err := rows.Scan(&cells[0], &cells[1], &cells[2], &cells[3], &cells[4], &cells[5]); err != nil {
			return nil, remote.Failure("fetch", err)
		}
		row := make([]any, remote.NumColumns)
		for i, cell := range cells {
			if cell.Valid {
				row[i] = cell.String
			}
		}
		raw = append(raw, row)
	}
	if err := rows.Err(); err != nil {
		return nil, remote.Failure("fetch", err)
	}
	return remote.DecodeRows(raw, false, c.log), nil
}

// Close closes the underlying DB.
func (c *Client) Close() error { return c.db.Close() }
