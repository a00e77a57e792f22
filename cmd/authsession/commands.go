package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/authsession"
	"github.com/MrEthical07/authsession/guard"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var (
		identifier    string
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Example: `  echo "$PASSWORD" | authsession login --identifier maria --password-stdin
  AUTHSESSION_PASSWORD=secret authsession login --identifier maria`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd, passwordStdin)
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			user, err := s.client.Login(cmd.Context(), identifier, password)
			if err != nil {
				return describeAuthError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", user.DisplayName(), user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&identifier, "identifier", "", "login identifier")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	_ = cmd.MarkFlagRequired("identifier")
	return cmd
}

func readPassword(cmd *cobra.Command, fromStdin bool) (string, error) {
	if !fromStdin {
		if pw := os.Getenv(envPrefix + "_PASSWORD"); pw != "" {
			return pw, nil
		}
		return "", errors.New("no password: use --password-stdin or set " + envPrefix + "_PASSWORD")
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// describeAuthError turns validation failures into a readable list.
func describeAuthError(err error) error {
	fields := authsession.FieldErrors(err)
	if len(fields) == 0 {
		return err
	}
	var b strings.Builder
	b.WriteString("invalid input:")
	for field, msg := range fields {
		fmt.Fprintf(&b, "\n  %s: %s", field, msg)
	}
	return errors.New(b.String())
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and forget it locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.client.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and derived permissions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := bootSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			snap := s.client.Snapshot()
			if !snap.Authenticated || snap.User == nil {
				return authsession.ErrNotAuthenticated
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					User        *authsession.User `json:"user"`
					Permissions []string          `json:"permissions"`
				}{snap.User, snap.Permissions.Slice()})
			}
			fmt.Fprintf(out, "%s (%s) role=%s\n", snap.User.DisplayName(), snap.User.ID, snap.User.Role)
			for _, p := range snap.Permissions.Slice() {
				fmt.Fprintf(out, "  %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newCanCmd(opts *rootOptions) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "can <permission>...",
		Short: "Exit non-zero unless the user holds the permissions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := bootSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			d := guard.Permission(s.client.Snapshot(), args, guard.ParseMode(mode))
			fmt.Fprintln(cmd.OutOrStdout(), d.Outcome)
			if d.Outcome != guard.Allow {
				return fmt.Errorf("permission check: %s", d.Outcome)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "all", "all or any")
	return cmd
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Send an authenticated GET and print the response body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := bootSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			resp, err := s.client.Do(cmd.Context(), authsession.Request{Method: http.MethodGet, Path: args[0]})
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(resp.Body)
			return err
		},
	}
}
