package app

import (
	"fmt"
	"io"

	"fota-manager/backend/initialize"

	"github.com/spf13/cobra"
)

type UserOptions struct {
	Password string
}

func AddPasswordFlag(cmd *cobra.Command, o *UserOptions) {
	cmd.Flags().StringVarP(&o.Password, "password", "p", o.Password, "Password of the user")
	_ = cmd.MarkFlagRequired("password")
}

// NewCmdUsers groups the credential file commands.
func NewCmdUsers(out io.Writer, g *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Short:   "Manage the credential file",
		Aliases: []string{"user"},
	}
	cmd.AddCommand(newCmdUsersList(out, g))
	cmd.AddCommand(newCmdUsersAdd(out, g))
	cmd.AddCommand(newCmdUsersVerify(out, g))
	return cmd
}

func newCmdUsersList(out io.Writer, g *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List user IDs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(app *initialize.App) error {
				users, err := app.Users.ListUsers()
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(users))
				for _, u := range users {
					role := "operator"
					if app.Users.IsAdmin(u) {
						role = "admin"
					}
					rows = append(rows, []string{u, role})
				}
				printTable(out, "no users", []string{"USER ID", "ROLE"}, rows)
				return nil
			})
		},
	}
}

func newCmdUsersAdd(out io.Writer, g *GlobalOptions) *cobra.Command {
	o := &UserOptions{}
	cmd := &cobra.Command{
		Use:   "add USER_ID",
		Short: "Append a user to the credential file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(app *initialize.App) error {
				if err := app.Users.AddUser(args[0], o.Password); err != nil {
					return err
				}
				fmt.Fprintf(out, "user %s added\n", args[0])
				return nil
			})
		},
	}
	AddPasswordFlag(cmd, o)
	return cmd
}

func newCmdUsersVerify(out io.Writer, g *GlobalOptions) *cobra.Command {
	o := &UserOptions{}
	cmd := &cobra.Command{
		Use:   "verify USER_ID",
		Short: "Check a user ID and password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(app *initialize.App) error {
				admin, err := app.Users.Verify(args[0], o.Password)
				if err != nil {
					return err
				}
				if admin {
					fmt.Fprintf(out, "%s: ok (admin)\n", args[0])
				} else {
					fmt.Fprintf(out, "%s: ok\n", args[0])
				}
				return nil
			})
		},
	}
	AddPasswordFlag(cmd, o)
	return cmd
}
