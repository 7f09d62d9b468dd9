// Command cleardrive-auth exercises the full client session lifecycle from a
// terminal: OTP login, session inspection, forced refresh, and logout. The
// refresh credential persists in a local bbolt file, so a session survives
// between invocations exactly as it would across browser restarts.
//
// Configuration comes from flags, the environment, or a .env file:
//
//	CLEARDRIVE_API_URL    backend base URL (e.g. https://api.cleardrive.lk/api/v1)
//	CLEARDRIVE_STATE_DIR  directory for the credential database (default ~/.cleardrive)
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	authkit "github.com/cleardrive/authkit"
	"github.com/cleardrive/authkit/credstore"
)

var (
	apiURL   string
	stateDir string
	verbose  bool
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "cleardrive-auth",
		Short:         "ClearDrive session lifecycle tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&apiURL, "api", envOr("CLEARDRIVE_API_URL", "http://localhost:8000/api/v1"), "backend API base URL")
	root.PersistentFlags().StringVar(&stateDir, "state-dir", envOr("CLEARDRIVE_STATE_DIR", ""), "credential state directory")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(loginCmd(), whoamiCmd(), refreshCmd(), logoutCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Log in via emailed one-time passcode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			ctx := cmd.Context()
			if err := engine.BeginLogin(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("passcode sent to %s\n", args[0])

			reader := bufio.NewReader(os.Stdin)
			for {
				fmt.Print("code (or 'resend'): ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return err
				}
				input := strings.TrimSpace(line)
				if input == "resend" {
					switch err := engine.ResendOTP(ctx); {
					case errors.Is(err, authkit.ErrResendCooldown):
						fmt.Printf("cooldown active, retry in %s\n", engine.ResendAvailableIn().Round(time.Second))
					case err != nil:
						return err
					default:
						fmt.Println("passcode resent")
					}
					continue
				}
				session, err := engine.VerifyOTP(ctx, input)
				if err != nil {
					if errors.Is(err, authkit.ErrInvalidOTP) || errors.Is(err, authkit.ErrOTPRejected) {
						fmt.Println("code rejected, try again")
						continue
					}
					return err
				}
				fmt.Printf("logged in as %s (%s)\n", session.Email, session.Role)
				return nil
			}
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the restored session, if any",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := buildEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			session, err := engine.Bootstrap(cmd.Context())
			if errors.Is(err, authkit.ErrNoSession) || errors.Is(err, authkit.ErrSessionExpired) || errors.Is(err, authkit.ErrNoRefreshCredential) {
				fmt.Println("not logged in")
				return nil
			}
			if err != nil {
				return err
			}
			if session.Pending {
				fmt.Println("logged in (identity pending)")
				return nil
			}
			fmt.Printf("%s <%s> role=%s\n", session.DisplayName, session.Email, session.Role)
			if !session.ExpiresAt.IsZero() {
				fmt.Printf("access credential expires %s\n", session.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
			}
			return nil
		},
	}
}

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force a credential rotation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := buildEngine()
			if err != nil {
				return err
			}
			defer engine.Close()
			if err := engine.Refresh(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("credentials rotated")
			return nil
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Invalidate the session and clear local credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := buildEngine()
			if err != nil {
				return err
			}
			defer engine.Close()
			if err := engine.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		},
	}
}

func buildEngine() (*authkit.Engine, error) {
	dir := stateDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".cleardrive")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	durable, err := credstore.OpenBolt(filepath.Join(dir, "credentials.db"))
	if err != nil {
		return nil, err
	}

	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	return authkit.New().
		WithBaseURL(apiURL).
		WithDurable(durable).
		WithLogger(log).
		Build()
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
