// Package sheets stores entry rows in a Google Sheets worksheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Tiliavir/trivial-pay-tracker/internal/logger"
	"github.com/Tiliavir/trivial-pay-tracker/internal/model"
	"github.com/Tiliavir/trivial-pay-tracker/internal/remote"
)

// DefaultSheetName is the worksheet used when none is configured.
const DefaultSheetName = "PayTracker"

// Config selects the spreadsheet and how to authenticate against it.
// Exactly one of HTTPClient, CredentialsFile or APIKey is used, in that order.
type Config struct {
	SpreadsheetID string
	SheetName     string
	// CredentialsFile is a service account JSON key.
	CredentialsFile string
	// APIKey only grants read access to publicly shared sheets.
	APIKey string
	// HTTPClient, when set, is used as-is (already authorized).
	HTTPClient *http.Client
	// Endpoint overrides the API base URL.
	Endpoint string
	Logger   *log.Logger
	// Now stamps appended rows; defaults to time.Now.
	Now func() time.Time
}

// Client implements remote.Store on one worksheet, columns A–F.
type Client struct {
	svc *sheets.Service
	id  string
	rng string
	log *log.Logger
	now func() time.Time
}

// Connect authorizes, builds the Sheets service and checks that the
// spreadsheet is reachable. It is meant to run as a remote.ConnectFunc.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet ID is required")
	}
	opts, err := clientOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: creating service: %w", err)
	}

	if _, err := svc.Spreadsheets.Get(cfg.SpreadsheetID).Fields("spreadsheetId").Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("sheets: opening spreadsheet %s: %w", cfg.SpreadsheetID, err)
	}

	name := cfg.SheetName
	if name == "" {
		name = DefaultSheetName
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	c := &Client{
		svc: svc,
		id:  cfg.SpreadsheetID,
		rng: name + "!A:F",
		log: logger.OrDiscard(cfg.Logger),
		now: now,
	}
	c.log.Debug("sheets client ready", "spreadsheet", c.id, "range", c.rng)
	return c, nil
}

func clientOptions(ctx context.Context, cfg Config) ([]option.ClientOption, error) {
	var opts []option.ClientOption
	switch {
	case cfg.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("sheets: reading credentials file: %w", err)
		}
		jwt, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("sheets: parsing credentials file %s: %w", cfg.CredentialsFile, err)
		}
		ts := oauth2.ReuseTokenSource(nil, jwt.TokenSource(ctx))
		opts = append(opts, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	default:
		return nil, errors.New("sheets: no credentials configured (set credentials_file or api_key)")
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	return opts, nil
}

// Save appends one RAW row for e stamped with the current time.
func (c *Client) Save(ctx context.Context, e model.Entry) (remote.Confirmation, error) {
	ts := c.now().UTC()
	vr := &sheets.ValueRange{Values: [][]interface{}{remote.EncodeRow(e, ts)}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.id, c.rng, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return remote.Confirmation{}, remote.Failure("save", err)
	}

	conf := remote.Confirmation{Timestamp: ts}
	if resp.Updates != nil {
		conf.Range = resp.Updates.UpdatedRange
	}
	c.log.Debug("appended row", "range", conf.Range, "date", e.Date)
	return conf, nil
}

// Fetch reads the whole range; the first row is the header.
func (c *Client) Fetch(ctx context.Context) ([]model.Entry, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.id, c.rng).Context(ctx).Do()
	if err != nil {
		return nil, remote.Failure("fetch", err)
	}
	entries := remote.DecodeRows(resp.Values, true, c.log)
	c.log.Debug("fetched rows", "rows", len(resp.Values), "entries", len(entries))
	return entries, nil
}
