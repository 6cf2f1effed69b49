package main

import (
	"fmt"

	pb "github.com/librarydesk/circulation/contracts/circulation/v1"
	"github.com/spf13/cobra"
)

func (a *app) booksCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "books", Short: "Browse and manage the catalog"}

	var filter pb.ListBooksRequest
	var page, pageSize int32
	list := &cobra.Command{
		Use:   "list",
		Short: "List books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			req := filter
			req.Pagination = &pb.Pagination{Page: page, PageSize: pageSize}
			resp, err := a.client.ListBooks(ctx, &req)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(resp)
			}
			return a.printBooks(resp.Books, resp.Pagination)
		},
	}
	list.Flags().StringVar(&filter.Category, "category", "", "only this category")
	list.Flags().StringVar(&filter.Author, "author", "", "only this author")
	list.Flags().StringVarP(&filter.Query, "query", "q", "", "search title and author")
	list.Flags().BoolVar(&filter.AvailableOnly, "available", false, "only books with a copy on the shelf")
	list.Flags().BoolVar(&filter.ActiveOnly, "active", true, "hide withdrawn books")
	list.Flags().Int32Var(&page, "page", 1, "page number")
	list.Flags().Int32Var(&pageSize, "page-size", 10, "books per page")

	get := &cobra.Command{
		Use:   "get BOOK_ID",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := a.client.GetBook(ctx, &pb.GetBookRequest{ID: args[0]})
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(resp)
			}
			return a.printBooks([]*pb.Book{resp.Book}, nil)
		},
	}

	var book pb.Book
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a book to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := a.requireActor()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			b := book
			resp, err := a.client.CreateBook(ctx, &pb.CreateBookRequest{ActorID: actor, Book: &b})
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(resp)
			}
			_, err = fmt.Fprintf(a.out, "Created %s %q with %d copies\n", resp.Book.ID, resp.Book.Title, resp.Book.TotalCopies)
			return err
		},
	}
	add.Flags().StringVar(&book.ID, "id", "", "book id (generated when empty)")
	add.Flags().StringVar(&book.Title, "title", "", "title")
	add.Flags().StringVar(&book.Author, "author", "", "author")
	add.Flags().StringVar(&book.ISBN, "isbn", "", "ISBN")
	add.Flags().StringVar(&book.Category, "category", "", "category")
	add.Flags().StringVar(&book.Description, "description", "", "description")
	add.Flags().Int32Var(&book.TotalCopies, "copies", 1, "copies owned")
	_ = add.MarkFlagRequired("title")
	_ = add.MarkFlagRequired("author")

	del := &cobra.Command{
		Use:   "delete BOOK_ID",
		Short: "Withdraw a book from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := a.requireActor()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			if _, err := a.client.DeleteBook(ctx, &pb.DeleteBookRequest{ActorID: actor, ID: args[0]}); err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.out, "Deleted %s\n", args[0])
			return err
		},
	}

	categories := &cobra.Command{
		Use:   "categories",
		Short: "List categories with their title counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := a.client.ListCategories(ctx, &pb.ListCategoriesRequest{})
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(resp)
			}
			for _, c := range resp.Categories {
				fmt.Fprintf(a.out, "%s\t%d\n", c.Name, c.Count)
			}
			return nil
		},
	}

	cmd.AddCommand(list, get, add, del, categories)
	return cmd
}
