package main

import (
	"fmt"

	pb "github.com/librarydesk/circulation/contracts/circulation/v1"
	"github.com/spf13/cobra"
)

func (a *app) borrowCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "borrow", Short: "Request, decide, renew and return loans"}

	var userID string
	request := &cobra.Command{
		Use:   "request BOOK_ID",
		Short: "Request a copy of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := userID
			if user == "" {
				var err error
				if user, err = a.requireActor(); err != nil {
					return err
				}
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := a.client.RequestBorrow(ctx, &pb.RequestBorrowRequest{UserID: user, BookID: args[0]})
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(resp)
			}
			return a.printRecord(resp.Record)
		},
	}
	request.Flags().StringVar(&userID, "user", "", "borrower (defaults to --actor)")

	cmd.AddCommand(
		request,
		a.decideCmd("approve", true),
		a.decideCmd("reject", false),
		a.renewCmd(),
		a.returnCmd(),
	)
	return cmd
}

func (a *app) decideCmd(use string, approve bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " RECORD_ID",
		Short: fmt.Sprintf("%s a pending request (staff)", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := a.requireActor()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := a.client.DecideRequest(ctx, &pb.DecideRequestRequest{ActorID: actor, RecordID: args[0], Approve: approve})
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(resp)
			}
			if resp.Removed {
				_, err = fmt.Fprintf(a.out, "Rejected %s\n", args[0])
				return err
			}
			return a.printRecord(resp.Record)
		},
	}
}

func (a *app) renewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "renew RECORD_ID",
		Short: "Extend a loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := a.requireActor()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := a.client.RenewLoan(ctx, &pb.RenewLoanRequest{ActorID: actor, RecordID: args[0]})
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(resp)
			}
			return a.printRecord(resp.Record)
		},
	}
}

func (a *app) returnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return RECORD_ID",
		Short: "Check a loan back in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := a.requireActor()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := a.client.ReturnBook(ctx, &pb.ReturnBookRequest{ActorID: actor, RecordID: args[0]})
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(resp)
			}
			return a.printRecord(resp.Record)
		},
	}
}

func (a *app) recordsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "records", Short: "Browse borrow records"}

	var filter pb.ListRecordsRequest
	var page, pageSize int32
	list := &cobra.Command{
		Use:   "list",
		Short: "List borrow records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			req := filter
			req.Pagination = &pb.Pagination{Page: page, PageSize: pageSize}
			resp, err := a.client.ListRecords(ctx, &req)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(resp)
			}
			return a.printRecords(resp.Records, resp.Pagination)
		},
	}
	list.Flags().StringVar(&filter.UserID, "user", "", "only this borrower")
	list.Flags().StringVar(&filter.BookID, "book", "", "only this book")
	list.Flags().StringVar(&filter.Status, "status", "", "pending, approved, overdue or returned")
	list.Flags().Int32Var(&page, "page", 1, "page number")
	list.Flags().Int32Var(&pageSize, "page-size", 10, "records per page")

	cmd.AddCommand(list)
	return cmd
}
