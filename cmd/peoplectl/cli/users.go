package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/peopledesk/internal/users"
)

func newUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
	}
	cmd.AddCommand(newUsersCreateCommand(), newUsersEmployeesCommand(), newUsersDeleteCommand())
	return cmd
}

func newUsersCreateCommand() *cobra.Command {
	var req users.NewUserRequest
	var employeeType string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user and attach the role derived from --type",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(e *env) error {
				if employeeType != "" {
					id, err := e.users.EnsureEmployeeType(cmd.Context(), employeeType)
					if err != nil {
						return err
					}
					req.EmployeeTypeID = &id
				}
				created, err := e.services.Users.CreateUser(cmd.Context(), operator, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %d <%s>\n", created.ID, created.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "full name (required)")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&req.Password, "password", "", "initial password (required)")
	cmd.Flags().StringVar(&req.Type, "type", "employee", "admin or employee")
	cmd.Flags().StringVar(&employeeType, "employee-type", "", "employee type label, created when missing")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUsersEmployeesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "employees",
		Short: "List every user holding the employee role",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(e *env) error {
				list, err := e.services.Users.Employees(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tEMAIL")
				for _, u := range list {
					fmt.Fprintf(w, "%d\t%s\t%s\n", u.ID, u.Name, u.Email)
				}
				return w.Flush()
			})
		},
	}
}

func newUsersDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			return withEnv(cmd, func(e *env) error {
				if err := e.services.Users.DeleteUser(cmd.Context(), operator, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted user %d\n", id)
				return nil
			})
		},
	}
}
