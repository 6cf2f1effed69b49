package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	pb "github.com/librarydesk/circulation/contracts/circulation/v1"
)

const dateLayout = "2006-01-02"

func (a *app) table(header string, rows func(w *tabwriter.Writer)) error {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, header)
	rows(w)
	return w.Flush()
}

func (a *app) printBooks(books []*pb.Book, p *pb.Pagination) error {
	err := a.table("ID\tTITLE\tAUTHOR\tCATEGORY\tAVAILABLE\tACTIVE", func(w *tabwriter.Writer) {
		for _, b := range books {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%t\n", b.ID, b.Title, b.Author, b.Category, b.AvailableCopies, b.TotalCopies, b.Active)
		}
	})
	if err != nil {
		return err
	}
	return a.printPage(p)
}

func (a *app) printRecords(records []*pb.BorrowRecord, p *pb.Pagination) error {
	err := a.table("ID\tBOOK\tUSER\tSTATUS\tBORROWED\tDUE\tRENEWALS", func(w *tabwriter.Writer) {
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n", r.ID, r.BookID, r.UserID, r.EffectiveStatus, day(r.BorrowDate), day(r.DueDate), r.RenewalCount)
		}
	})
	if err != nil {
		return err
	}
	return a.printPage(p)
}

func (a *app) printRecord(r *pb.BorrowRecord) error {
	return a.printRecords([]*pb.BorrowRecord{r}, nil)
}

func (a *app) printUsers(users []*pb.User, p *pb.Pagination) error {
	err := a.table("ID\tEMAIL\tNAME\tROLE", func(w *tabwriter.Writer) {
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Name, u.Role)
		}
	})
	if err != nil {
		return err
	}
	return a.printPage(p)
}

func (a *app) printStats(s *pb.DashboardStats) error {
	return a.table("METRIC\tVALUE", func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Total copies\t%d\n", s.TotalCopies)
		fmt.Fprintf(w, "Titles\t%d\n", s.TotalTitles)
		fmt.Fprintf(w, "Users\t%d\n", s.TotalUsers)
		fmt.Fprintf(w, "Currently borrowed\t%d\n", s.CurrentlyBorrowed)
		fmt.Fprintf(w, "Overdue\t%d\n", s.Overdue)
		fmt.Fprintf(w, "Pending requests\t%d\n", s.PendingRequests)
		fmt.Fprintf(w, "Returned\t%d\n", s.Returned)
	})
}

func (a *app) printPage(p *pb.Pagination) error {
	if p == nil {
		return nil
	}
	_, err := fmt.Fprintf(a.out, "page %d/%d (%d total)\n", p.Page, p.TotalPages, p.Total)
	return err
}

func day(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(dateLayout)
}
