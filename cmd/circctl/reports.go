package main

import (
	"fmt"
	"text/tabwriter"

	pb "github.com/librarydesk/circulation/contracts/circulation/v1"
	"github.com/spf13/cobra"
)

func (a *app) statsCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := a.client.GetDashboardStats(ctx, &pb.GetDashboardStatsRequest{UserID: userID})
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(resp)
			}
			if err := a.printStats(resp.Stats); err != nil {
				return err
			}
			if u := resp.User; u != nil {
				fmt.Fprintf(a.out, "\nUser %s: %d borrowed, %d overdue, %d pending, %d loans left\n",
					u.UserID, u.CurrentlyBorrowed, u.Overdue, u.Pending, u.RemainingLoans)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "also show this user's dashboard")
	return cmd
}

func (a *app) reportCmd() *cobra.Command {
	var top int32
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show category breakdown and top borrowers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := a.client.GetReport(ctx, &pb.GetReportRequest{TopN: top})
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(resp)
			}
			if err := a.printStats(resp.Stats); err != nil {
				return err
			}
			fmt.Fprintln(a.out)
			if err := a.table("CATEGORY\tTITLES\tSHARE", func(w *tabwriter.Writer) {
				for _, c := range resp.Categories {
					fmt.Fprintf(w, "%s\t%d\t%d%%\n", c.Name, c.Count, c.Percentage)
				}
			}); err != nil {
				return err
			}
			fmt.Fprintln(a.out)
			return a.table("BORROWER\tEMAIL\tLOANS", func(w *tabwriter.Writer) {
				for _, u := range resp.TopBorrowers {
					fmt.Fprintf(w, "%s\t%s\t%d\n", u.Name, u.Email, u.BorrowCount)
				}
			})
		},
	}
	cmd.Flags().Int32Var(&top, "top", 5, "number of borrowers to show")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "export", Short: "Export reports to the export store"}

	var req pb.ExportHistoryRequest
	history := &cobra.Command{
		Use:   "history",
		Short: "Export borrowing history as CSV (staff)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := a.requireActor()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			r := req
			r.ActorID = actor
			resp, err := a.client.ExportHistory(ctx, &r)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(resp)
			}
			_, err = fmt.Fprintf(a.out, "Exported %d rows to %s\n%s\n", resp.Rows, resp.Key, resp.URL)
			return err
		},
	}
	history.Flags().StringVar(&req.UserID, "user", "", "only this borrower")
	history.Flags().StringVar(&req.Status, "status", "", "only this effective status")
	history.Flags().StringVarP(&req.Query, "query", "q", "", "match title, author or borrower")

	cmd.AddCommand(history)
	return cmd
}
