package command

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in and start a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptSecret(cmd, "Password: ")
		if err != nil {
			return err
		}
		ident, err := current.auth.Login(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Login successful. Welcome, %s (user %d).\n",
			ident.Username, ident.UserID)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <username> <email>",
	Short: "Create a new account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptSecret(cmd, "Password: ")
		if err != nil {
			return err
		}
		confirm, err := promptSecret(cmd, "Re-enter password: ")
		if err != nil {
			return err
		}
		ident, err := current.auth.Register(cmd.Context(), args[0], args[1], password, confirm)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registration successful (user %d).\n", ident.UserID)
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password <email> <username>",
	Short: "Reset an account password",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptSecret(cmd, "New password: ")
		if err != nil {
			return err
		}
		if err := current.auth.ResetPassword(cmd.Context(), args[0], args[1], password); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Password reset successfully!")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.auth.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logout successful")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the session identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ident := current.auth.Identity(cmd.Context())
		if ident.Anonymous() {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (user %d)\n", ident.Username, ident.UserID)
		return nil
	},
}

// promptSecret reads one line from the command input. Passwords arrive via
// the prompt rather than argv so they stay out of the process list.
func promptSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
