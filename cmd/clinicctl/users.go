package main

import (
	"github.com/spf13/cobra"

	"github.com/clinicbook/internal/api"
	"github.com/clinicbook/internal/models"
)

func newUsersCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Administer the allow-list",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List allowed users, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				users, err := g.client().ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, api.UsersResponse{Users: users})
			},
		},
		&cobra.Command{
			Use:   "get EMAIL",
			Short: "Look up one allowed user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				u, err := g.client().GetUserByEmail(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, api.UserResponse{User: u})
			},
		},
		newAddUserCommand(g),
		newUpdateUserCommand(g),
		&cobra.Command{
			Use:   "delete ID",
			Short: "Remove a user from the allow-list",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				u, err := g.client().DeleteUser(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printJSON(cmd, api.UserResponse{Success: true, User: u})
			},
		},
	)
	return cmd
}

func newAddUserCommand(g *globals) *cobra.Command {
	var (
		admin bool
		name  string
		notes string
	)
	cmd := &cobra.Command{
		Use:   "add EMAIL",
		Short: "Allow an email to sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := models.NewAllowedUser{Email: args[0], IsAdmin: admin}
			if cmd.Flags().Changed("name") {
				in.Name = &name
			}
			if cmd.Flags().Changed("notes") {
				in.Notes = &notes
			}
			u, err := g.client().AddUser(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd, api.UserResponse{Success: true, User: u})
		},
	}
	cmd.Flags().BoolVar(&admin, "admin", false, "grant admin rights")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	return cmd
}

func newUpdateUserCommand(g *globals) *cobra.Command {
	var admin bool
	cmd := &cobra.Command{
		Use:   "update ID EMAIL",
		Short: "Change a user's email and admin flag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			u, err := g.client().UpdateUser(cmd.Context(), id, args[1], admin)
			if err != nil {
				return err
			}
			return printJSON(cmd, api.UserResponse{Success: true, User: u})
		},
	}
	cmd.Flags().BoolVar(&admin, "admin", false, "admin rights after the update")
	return cmd
}
