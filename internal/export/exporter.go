package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/librarydesk/circulation/internal/repo"
	"go.uber.org/zap"
)

const (
	historyPrefix  = "reports/history-"
	contentTypeCSV = "text/csv"
	urlExpiry      = 24 * time.Hour
)

// HistorySource yields the rows of a history export.
type HistorySource interface {
	History(ctx context.Context, f repo.HistoryFilter, now time.Time) ([]repo.HistoryRow, error)
}

// Result describes a finished export.
type Result struct {
	Key  string
	URL  string
	Rows int
}

// Exporter renders reports and stores them as blobs.
type Exporter struct {
	store   Store
	history HistorySource
	now     func() time.Time
	log     *zap.Logger
}

// NewExporter creates an exporter writing to store.
func NewExporter(store Store, history HistorySource, log *zap.Logger) *Exporter {
	return &Exporter{
		store:   store,
		history: history,
		now:     func() time.Time { return time.Now().UTC() },
		log:     log,
	}
}

// WithClock replaces the exporter's clock.
func (e *Exporter) WithClock(now func() time.Time) *Exporter {
	e.now = now
	return e
}

// ExportHistory writes the borrowing history matching f as CSV and returns
// where it was stored.
func (e *Exporter) ExportHistory(ctx context.Context, f repo.HistoryFilter) (*Result, error) {
	now := e.now()
	rows, err := e.history.History(ctx, f, now)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteHistoryCSV(&buf, rows); err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}

	key := fmt.Sprintf("%s%s.csv", historyPrefix, now.Format("20060102T150405.000Z"))
	info, err := e.store.Put(ctx, key, bytes.NewReader(buf.Bytes()), PutOptions{
		ContentType: contentTypeCSV,
		Metadata: map[string]string{
			"rows":   fmt.Sprintf("%d", len(rows)),
			"report": "history",
		},
	})
	if err != nil {
		e.log.Error("Failed to store export", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("store export: %w", err)
	}

	url, err := e.store.PresignURL(ctx, key, urlExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign export: %w", err)
	}

	e.log.Info("History exported",
		zap.String("key", key),
		zap.String("driver", string(e.store.Driver())),
		zap.Int("rows", len(rows)),
		zap.Int64("bytes", info.Size),
	)
	return &Result{Key: key, URL: url, Rows: len(rows)}, nil
}
