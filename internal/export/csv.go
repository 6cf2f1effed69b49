package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/librarydesk/circulation/internal/repo"
)

// HistoryHeader is the first line of every history export.
var HistoryHeader = []string{
	"record_id",
	"book_title",
	"user_name",
	"user_email",
	"borrow_date",
	"due_date",
	"return_date",
	"renewal_count",
	"status",
}

// WriteHistoryCSV writes rows under HistoryHeader. Dates are RFC 3339 in UTC,
// an open loan has an empty return_date and status is the effective one.
func WriteHistoryCSV(w io.Writer, rows []repo.HistoryRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(HistoryHeader); err != nil {
		return err
	}
	for _, row := range rows {
		status := row.EffectiveStatus
		if status == "" {
			status = row.Status
		}
		if err := cw.Write([]string{
			row.RecordID,
			row.BookTitle,
			row.UserName,
			row.UserEmail,
			formatTime(row.BorrowDate),
			formatTime(row.DueDate),
			formatOptionalTime(row.ReturnDate),
			strconv.Itoa(int(row.RenewalCount)),
			string(status),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
