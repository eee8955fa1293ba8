package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nissyi-gh/remind/internal/api"
	"github.com/nissyi-gh/remind/internal/model"
	"github.com/nissyi-gh/remind/internal/session"
)

func (a *app) loginCmd() *cobra.Command {
	var creds model.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if creds.Username == "" {
				if creds.Username, err = ask(in, cmd.OutOrStdout(), "Username: "); err != nil {
					return err
				}
			}
			if creds.Password == "" {
				if creds.Password, err = ask(in, cmd.OutOrStdout(), "Password: "); err != nil {
					return err
				}
			}

			tok, err := a.client.Login(cmd.Context(), creds)
			if errors.Is(err, api.ErrUnauthorized) {
				return errors.New("invalid username or password")
			}
			if err != nil {
				return describe(err)
			}
			if err := a.session.Establish(tok); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", a.session.User().Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "username (prompted when empty)")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "password (prompted when empty)")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var reg model.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if reg.Password2 == "" {
				reg.Password2 = reg.Password
			}
			user, err := a.client.Register(cmd.Context(), reg)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %s created. Run `remind login` to log in.\n", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&reg.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&reg.Email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&reg.Password, "password", "p", "", "password")
	cmd.Flags().StringVar(&reg.Password2, "password2", "", "password confirmation (defaults to --password)")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.session.Teardown()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			u := a.session.User()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (id %d)\n", u.Username, u.ID)
			if u.Email != "" {
				fmt.Fprintf(out, "email:   %s\n", u.Email)
			}
			if c, err := session.ParseClaims(a.session.Token()); err == nil && !c.ExpiresAt.IsZero() {
				fmt.Fprintf(out, "expires: %s\n", c.ExpiresAt.Local().Format("2006-01-02 15:04"))
			}
			if since := a.session.Since(); !since.IsZero() {
				fmt.Fprintf(out, "since:   %s\n", since.Local().Format("2006-01-02 15:04"))
			}
			fmt.Fprintf(out, "server:  %s\n", a.client.BaseURL())
			return nil
		},
	}
}

func ask(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(line), nil
}
