package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	authdomain "github.com/smallbiznis/cbam/internal/auth/domain"
	"github.com/smallbiznis/cbam/internal/session"
	"github.com/spf13/cobra"
)

type credentials struct {
	email    string
	password string
}

func newAuthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the signed-in account",
		Long: `Signs in to the local account store. The session token is kept in
CBAM_HOME and refreshed automatically when it is close to expiry.`,
	}
	cmd.AddCommand(
		newSignInCmd(a, "signup", "Create an account and sign in"),
		newSignInCmd(a, "login", "Sign in with email and password"),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newProfileCmd(a),
	)
	return cmd
}

func newSignInCmd(a *app, use, short string) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  short + ". The password is read from stdin when --password is not set.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if creds.password == "" {
				pw, err := readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				creds.password = pw
			}

			manager, _, err := a.sessions(ctx)
			if err != nil {
				return err
			}
			defer manager.Stop()

			signIn := manager.SignIn
			if use == "signup" {
				signIn = manager.SignUp
			}
			sess, err := signIn(ctx, creds.email, creds.password)
			if err != nil {
				return describeAuthError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s).\n", sess.User.DisplayName, sess.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&creds.email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			manager, _, err := a.sessions(ctx)
			if err != nil {
				return err
			}
			defer manager.Stop()
			if err := manager.SignOut(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			manager, _, err := a.sessions(ctx)
			if err != nil {
				return err
			}
			defer manager.Stop()

			sess, err := manager.GetCurrentSession(ctx)
			if err != nil {
				return err
			}
			if sess == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			return printProfile(cmd.OutOrStdout(), sess)
		},
	}
}

func newProfileCmd(a *app) *cobra.Command {
	var displayName, companyName string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update the display name or company",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var req authdomain.UpdateProfileRequest
			if cmd.Flags().Changed("display-name") {
				req.DisplayName = &displayName
			}
			if cmd.Flags().Changed("company") {
				req.CompanyName = &companyName
			}
			if req.DisplayName == nil && req.CompanyName == nil {
				return errors.New("nothing to update, set --display-name or --company")
			}

			p, err := a.provider()
			if err != nil {
				return err
			}
			sess, err := p.UpdateProfile(ctx, req)
			if err != nil {
				return describeAuthError(err)
			}
			return printProfile(cmd.OutOrStdout(), sess)
		},
	}
	cmd.Flags().StringVar(&displayName, "display-name", "", "name shown on the dashboard")
	cmd.Flags().StringVar(&companyName, "company", "", "company shown on the dashboard")
	return cmd
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password is required")
	}
	return pw, nil
}

func describeAuthError(err error) error {
	switch {
	case errors.Is(err, authdomain.ErrInvalidCredentials):
		return errors.New("invalid email or password")
	case errors.Is(err, authdomain.ErrUserExists):
		return errors.New("an account with this email already exists")
	case errors.Is(err, authdomain.ErrWeakPassword):
		return errors.New("password is too short")
	case errors.Is(err, authdomain.ErrInvalidEmail):
		return errors.New("invalid email address")
	case errors.Is(err, session.ErrNotSignedIn):
		return errors.New("not signed in, run 'cbam auth login' first")
	default:
		return err
	}
}

func printProfile(w io.Writer, sess *session.UserSession) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name\t%s\n", sess.User.DisplayName)
	fmt.Fprintf(tw, "Email\t%s\n", sess.Email)
	fmt.Fprintf(tw, "Company\t%s\n", sess.User.CompanyName)
	fmt.Fprintf(tw, "Session expires\t%s\n", sess.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"))
	return tw.Flush()
}
