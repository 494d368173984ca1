package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"telecom-billing/internal/auth"
	"telecom-billing/internal/rbac"

	"github.com/spf13/cobra"
)

var (
	userUsername string
	userFullName string
	userRole     string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Operator account commands",
}

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an operator or admin account",
	Long: `Create an operator or admin account.

The password is read from BILLINGCTL_PASSWORD so it never appears in
shell history or the process list.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := newUserRequest(userUsername, userFullName, userRole, os.Getenv("BILLINGCTL_PASSWORD"))
		if err != nil {
			return err
		}

		ctx, b, err := openBackend(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer b.Close()

		u, err := auth.CreateUser(ctx, auth.NewPostgresUserStore(b.pool), req, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", u.Role, u.Username, u.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersCreateCmd)
	usersCreateCmd.Flags().StringVar(&userUsername, "username", "", "login name [REQUIRED]")
	usersCreateCmd.Flags().StringVar(&userFullName, "full-name", "", "display name")
	usersCreateCmd.Flags().StringVar(&userRole, "role", rbac.RoleOperator, "admin or operator")
}

func newUserRequest(username, fullName, role, password string) (auth.NewUserRequest, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if !rbac.Valid(role) {
		return auth.NewUserRequest{}, fmt.Errorf("%w: role must be %s or %s, got %q", errUsage, rbac.RoleAdmin, rbac.RoleOperator, role)
	}
	if strings.TrimSpace(username) == "" {
		return auth.NewUserRequest{}, fmt.Errorf("%w: --username is required", errUsage)
	}
	if password == "" {
		return auth.NewUserRequest{}, fmt.Errorf("%w: BILLINGCTL_PASSWORD is not set", errUsage)
	}
	return auth.NewUserRequest{Username: username, Password: password, FullName: fullName, Role: role}, nil
}
