// Package remote adapts append-only tabular stores (a spreadsheet, a SQL
// table) to the entry model. Adapters report failures as values and never
// retry.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Tiliavir/trivial-pay-tracker/internal/model"
)

// ErrNotReady is returned while the remote client is still initializing.
// Callers treat it as routine.
var ErrNotReady = errors.New("remote store not ready")

// Store appends and reads entry rows.
type Store interface {
	// Save appends exactly one row for e, stamped with the capture time.
	Save(ctx context.Context, e model.Entry) (Confirmation, error)
	// Fetch returns every data row that could be mapped, in row order.
	Fetch(ctx context.Context) ([]model.Entry, error)
}

// Confirmation describes an appended row.
type Confirmation struct {
	Timestamp time.Time
	// Range is the store-specific location of the new row, if known.
	Range string
}

// FailureError wraps a transport, auth or quota error from the remote store.
type FailureError struct {
	Op  string
	Err error
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("remote %s failed: %v", e.Op, e.Err)
}

func (e *FailureError) Unwrap() error { return e.Err }

// Failure wraps err as a *FailureError, passing nil and ErrNotReady through.
func Failure(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotReady) {
		return err
	}
	return &FailureError{Op: op, Err: err}
}

// MalformedRowError reports a fetched row that could not be mapped.
// It is logged and the row is dropped.
type MalformedRowError struct {
	Row    int
	Reason string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row %d: %s", e.Row, e.Reason)
}
