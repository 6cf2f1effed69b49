package main

import (
	"fmt"

	pb "github.com/librarydesk/circulation/contracts/circulation/v1"
	"github.com/spf13/cobra"
)

func (a *app) usersCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "Manage the user directory"}

	var email, name, role string
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a user (password is prompted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := a.readPassword("Password: ")
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := a.client.RegisterUser(ctx, &pb.RegisterUserRequest{
				ActorID:  a.actor,
				Email:    email,
				Name:     name,
				Role:     role,
				Password: password,
			})
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(resp)
			}
			_, err = fmt.Fprintf(a.out, "Registered %s (%s) as %s\n", resp.User.Email, resp.User.ID, resp.User.Role)
			return err
		},
	}
	add.Flags().StringVar(&email, "email", "", "email address")
	add.Flags().StringVar(&name, "name", "", "display name")
	add.Flags().StringVar(&role, "role", "student", "student, librarian or admin")
	_ = add.MarkFlagRequired("email")
	_ = add.MarkFlagRequired("name")

	var listRole string
	var page, pageSize int32
	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := a.client.ListUsers(ctx, &pb.ListUsersRequest{Role: listRole, Pagination: &pb.Pagination{Page: page, PageSize: pageSize}})
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(resp)
			}
			return a.printUsers(resp.Users, resp.Pagination)
		},
	}
	list.Flags().StringVar(&listRole, "role", "", "only this role")
	list.Flags().Int32Var(&page, "page", 1, "page number")
	list.Flags().Int32Var(&pageSize, "page-size", 10, "users per page")

	setRole := &cobra.Command{
		Use:   "role USER_ID ROLE",
		Short: "Change a user's role (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := a.requireActor()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := a.client.UpdateUserRole(ctx, &pb.UpdateUserRoleRequest{ActorID: actor, UserID: args[0], Role: args[1]})
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(resp)
			}
			_, err = fmt.Fprintf(a.out, "%s is now %s\n", resp.User.Email, resp.User.Role)
			return err
		},
	}

	var loginEmail string
	login := &cobra.Command{
		Use:   "login",
		Short: "Check credentials and print the user id to use as --actor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := a.readPassword("Password: ")
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := a.client.Authenticate(ctx, &pb.AuthenticateRequest{Email: loginEmail, Password: password})
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(resp)
			}
			_, err = fmt.Fprintf(a.out, "Welcome %s (%s)\nexport CIRCULATION_ACTOR=%s\n", resp.User.Name, resp.User.Role, resp.User.ID)
			return err
		},
	}
	login.Flags().StringVar(&loginEmail, "email", "", "email address")
	_ = login.MarkFlagRequired("email")

	cmd.AddCommand(add, list, setRole, login)
	return cmd
}
