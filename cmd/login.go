package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teemow/mahakaal/internal/google"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Connect Google Calendar from the terminal",
		Long: `Run the Google OAuth consent flow without the web frontend.

Open the printed URL, approve access, then paste either the authorization
code or the full URL you were redirected to. The token is written to the
configured token file (google.token_file, default token.json).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := prepare(cmd)
			if err != nil {
				return err
			}
			oauthConfig, err := google.NewOAuthConfig(cfg.OAuth())
			if err != nil {
				return err
			}
			auth := google.NewAuthenticator(oauthConfig, google.NewFileTokenProvider(cfg.Google.TokenFile), nil, logger)
			return runLogin(cmd.Context(), auth, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

type loginFlow interface {
	LoginURL(state string) string
	Exchange(ctx context.Context, code string) error
}

func runLogin(ctx context.Context, auth loginFlow, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Open this URL in your browser and approve calendar access:")
	fmt.Fprintf(out, "\n  %s\n\n", auth.LoginURL(uuid.NewString()))
	fmt.Fprint(out, "Paste the code or the redirect URL: ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read code: %w", err)
	}

	code, err := extractCode(line)
	if err != nil {
		return err
	}
	if err := auth.Exchange(ctx, code); err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintln(out, "✓ Google Calendar connected")
	return nil
}

// extractCode accepts a bare authorization code or the full redirect URL.
func extractCode(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("no authorization code given")
	}
	if !strings.Contains(input, "code=") {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URL: %w", err)
	}
	q := u.Query()
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("authorization denied: %s", e)
	}
	code := q.Get("code")
	if code == "" {
		return "", errors.New("redirect URL has no code parameter")
	}
	return code, nil
}
