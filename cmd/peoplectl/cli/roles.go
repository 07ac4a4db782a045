package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/peopledesk/internal/roles"
)

func newRolesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Inspect and detach roles",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(e *env) error {
				list, err := e.services.Roles.ListRoles(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
				for _, r := range list {
					fmt.Fprintf(w, "%d\t%s\t%s\n", r.ID, r.Name, r.Description)
				}
				return w.Flush()
			})
		},
	})
	cmd.AddCommand(newRolesDetachCommand())
	return cmd
}

func newRolesDetachCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detach <user-id> <role>",
		Short: "Remove a role from a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || userID <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			name, ok := roles.ParseName(args[1])
			if !ok {
				return fmt.Errorf("unknown role %q", args[1])
			}
			return withEnv(cmd, func(e *env) error {
				role, err := e.services.Roles.RoleByName(cmd.Context(), name)
				if err != nil {
					return err
				}
				if err := e.services.RBAC.RemoveRole(cmd.Context(), userID, role.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "detached %s from user %d\n", role.Name, userID)
				return nil
			})
		},
	}
}
