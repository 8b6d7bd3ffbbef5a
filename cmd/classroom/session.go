package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Bidon15/classroom/internal/api"
	"github.com/Bidon15/classroom/internal/guard"
)

var errNoEmail = errors.New("no email given: use --email")

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the classroom service",
		Long: `Sign in with your classroom account. The session is kept until you
run "classroom logout".

When --password is omitted it is read from the first line of stdin.

Examples:
  classroom login --email you@example.com --password secret
  echo secret | classroom login --email you@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Already signed in: the guard moved us to the home screen.
			if a.redirected(guard.Home) {
				return a.renderHome()
			}
			if email == "" {
				return errNoEmail
			}

			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("no password given: use --password or pipe it on stdin")
				}
				password = strings.TrimRight(line, "\r\n")
			}

			if !a.session.Login(cmd.Context(), email, password) {
				return fmt.Errorf("login failed: %s", loginMessage(a.session.LastError()))
			}

			a.feed.Load(cmd.Context())

			user, _ := a.session.User()
			if a.structured() {
				return a.printStructured(user)
			}
			a.printf("%s Welcome, %s\n\n", a.colorGreen("✓"), a.colorBold(user.FullName()))
			return a.renderHome()
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email (required unless already signed in)")
	cmd.Flags().StringVar(&password, "password", "", "account password (read from stdin when omitted)")

	return withLocation(cmd, guard.Login)
}

// loginMessage is the text shown for a failed login.
func loginMessage(err error) string {
	if authErr, ok := api.IsAuthError(err); ok {
		return authErr.Message
	}
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func newLogoutCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wasSignedIn := a.session.Authenticated()
			a.session.Logout()

			if a.structured() {
				return a.printStructured(map[string]interface{}{
					"status":        "signed_out",
					"was_signed_in": wasSignedIn,
				})
			}
			if !wasSignedIn {
				a.printf("Not signed in\n")
				return nil
			}
			a.printf("%s Signed out\n", a.colorGreen("✓"))
			return nil
		},
	}
	return withLocation(cmd, "")
}
