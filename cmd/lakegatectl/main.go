package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/brporter/lakegate/internal/cli"
	"github.com/brporter/lakegate/internal/config"
)

func main() {
	var gatewayURL string
	var envFile string
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "lakegatectl",
		Short: "Probe a lakegate gateway",
		Long:  "lakegatectl calls the gateway endpoints with the credentials a notebook, browser or local script would send.",
		Example: `  # Healthcheck, identity and trips as the logged-in service identity
  lakegatectl login
  lakegatectl call healthcheck me trips

  # Look up another user's groups through the directory
  lakegatectl call groups --user-email someone@example.com

  # Send a notebook token for verification
  lakegatectl call groups --user-token "$TOKEN"`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.LoadEnvFile(envFile, cmd.Flags().Changed("env-file"))
		},
	}
	rootCmd.PersistentFlags().StringVar(&gatewayURL, "gateway", "", fmt.Sprintf("Gateway URL (default: %s, or LAKEGATE_URL)", cli.DefaultGatewayURL))
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Read settings from this file before the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	logger := func() *slog.Logger {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	var opts cli.CallOptions
	callCmd := &cobra.Command{
		Use:       "call [endpoint...]",
		Short:     "Call gateway endpoints and print the responses",
		ValidArgs: cli.EndpointNames(),
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"healthcheck", "me", "trips"}
			}
			if opts.Token == "" && opts.ForwardedToken == "" {
				if cache, err := cli.LoadTokenCache(); err == nil && cache.Valid(time.Now()) {
					opts.Token = cache.AccessToken
				}
			}

			base := gatewayURL
			if base == "" {
				base = os.Getenv("LAKEGATE_URL")
			}
			if base == "" {
				base = cli.DefaultConfig().GatewayURL
			}
			client := cli.NewClient(base)

			var failed bool
			for _, name := range args {
				resp, err := client.Call(cmd.Context(), name, opts)
				if err != nil {
					fmt.Fprintf(os.Stdout, "\n--- %s ---\nERROR: %v\n", name, err)
					failed = true
					continue
				}
				resp.Print(os.Stdout, name)
				if resp.StatusCode >= 400 {
					failed = true
				}
			}
			if failed {
				return fmt.Errorf("one or more calls failed")
			}
			return nil
		},
	}
	callCmd.Flags().StringVar(&opts.Token, "token", "", "Bearer token sent as Authorization (default: cached login)")
	callCmd.Flags().StringVar(&opts.ForwardedToken, "forwarded-token", "", "Token sent as x-forwarded-access-token, for a gateway without a proxy")
	callCmd.Flags().StringVar(&opts.UserToken, "user-token", "", "Caller-supplied token sent as x-user-token")
	callCmd.Flags().StringVar(&opts.UserEmail, "user-email", "", "Target user sent as x-user-email")

	var scopes string
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Obtain a service identity token with client credentials",
		Long:  "login exchanges DATABRICKS_CLIENT_ID and DATABRICKS_CLIENT_SECRET for a token at DATABRICKS_HOST and caches it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.NewViper())
			if err != nil {
				return err
			}
			_, err = cli.Login(cmd.Context(), cfg, strings.Fields(scopes), os.Stderr, logger())
			return err
		},
	}
	loginCmd.Flags().StringVar(&scopes, "scopes", "all-apis", "OAuth scopes (space separated)")

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Clear the cached token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.ClearTokenCache(); err != nil {
				return err
			}
			fmt.Println("Logged out successfully")
			return nil
		},
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect [token]",
		Short: "Show the claims of a token without verifying it",
		Long:  "inspect decodes a token given as an argument, on stdin as \"-\", or from the login cache.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := inspectTarget(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return cli.Inspect(os.Stdout, token, time.Now())
		},
	}

	rootCmd.AddCommand(callCmd, loginCmd, logoutCmd, inspectCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func inspectTarget(args []string, stdin io.Reader) (string, error) {
	switch {
	case len(args) == 1 && args[0] == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	case len(args) == 1:
		return args[0], nil
	}
	cache, err := cli.LoadTokenCache()
	if err != nil {
		return "", fmt.Errorf("no token given and none cached (run lakegatectl login): %w", err)
	}
	return cache.AccessToken, nil
}
