package export

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/librarydesk/circulation/internal/db"
	"github.com/librarydesk/circulation/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubHistory struct {
	rows   []repo.HistoryRow
	err    error
	filter repo.HistoryFilter
}

func (s *stubHistory) History(_ context.Context, f repo.HistoryFilter, _ time.Time) ([]repo.HistoryRow, error) {
	s.filter = f
	return s.rows, s.err
}

func TestExportHistory(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	src := &stubHistory{rows: []repo.HistoryRow{
		{RecordID: "R1", BookTitle: "Dune", UserName: "Alice", UserEmail: "alice@example.com", Status: db.StatusPending},
		{RecordID: "R2", BookTitle: "Cosmos", UserName: "Bob", UserEmail: "bob@example.com", Status: db.StatusApproved},
	}}
	now := time.Date(2025, 3, 3, 9, 30, 15, 123000000, time.UTC)
	exporter := NewExporter(store, src, zap.NewNop()).WithClock(func() time.Time { return now })

	res, err := exporter.ExportHistory(context.Background(), repo.HistoryFilter{UserID: "U1"})
	require.NoError(t, err)
	assert.Equal(t, "reports/history-20250303T093015.123Z.csv", res.Key)
	assert.Equal(t, 2, res.Rows)
	assert.True(t, strings.HasPrefix(res.URL, "file://"))
	assert.Equal(t, "U1", src.filter.UserID)

	info, rc, err := store.Get(context.Background(), res.Key)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", info.ContentType)
	assert.Equal(t, "2", info.Metadata["rows"])
	assert.Equal(t, 3, strings.Count(string(body), "\n"))
}

func TestExportHistoryToS3(t *testing.T) {
	store, rt := newMockS3Store(t)
	exporter := NewExporter(store, &stubHistory{}, zap.NewNop())

	res, err := exporter.ExportHistory(context.Background(), repo.HistoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Rows)
	assert.Contains(t, res.URL, "X-Amz-Signature=")
	assert.Equal(t, 1, rt.puts)
}

func TestExportHistorySourceError(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	exporter := NewExporter(store, &stubHistory{err: errors.New("db down")}, zap.NewNop())

	_, err = exporter.ExportHistory(context.Background(), repo.HistoryFilter{})
	assert.Error(t, err)
}
