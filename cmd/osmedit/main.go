// Package main is the entry point for the osmedit CLI.
//
// The application startup follows this sequence:
//
// 1. Initialize logging (stderr or debug file, never stdout)
// 2. Load configuration (defaults, yaml file, .env, environment)
// 3. Dispatch to the requested subcommand
//
// The serve command speaks the MCP protocol over stdio, which is why no code
// path in this binary may write anything but protocol frames to stdout while
// it runs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"osmedit/internal/config"
	"osmedit/internal/httpapi"
	"osmedit/internal/logging"
	"osmedit/internal/mcp"
	"osmedit/internal/osm"
	"osmedit/internal/tags"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	logger := logging.NewAppLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Error loading config", "error", err)
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "osmedit",
		Short:         "Natural language OpenStreetMap editing server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&cfg.UseDevAPI, "dev", cfg.UseDevAPI,
		"use the development API sandbox instead of production")

	root.AddCommand(
		serveCmd(cfg, logger),
		serveHTTPCmd(cfg, logger),
		authCmd(cfg, logger),
		parseCmd(cfg, logger),
		suggestCmd(cfg, logger),
		validateCmd(cfg, logger),
	)

	if err := root.Execute(); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func serveCmd(cfg *config.Config, logger *logging.AppLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP protocol over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := mcp.NewServer(cfg, logger)
			return server.Start()
		},
	}
}

func serveHTTPCmd(cfg *config.Config, logger *logging.AppLogger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve-http",
		Short: "Serve the HTTP facade",
		RunE: func(cmd *cobra.Command, args []string) error {
			return httpapi.NewServer(cfg, logger).Run()
		},
	}
	cmd.Flags().StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "listen address")
	return cmd
}

func authCmd(cfg *config.Config, logger *logging.AppLogger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage OSM OAuth credentials",
	}

	login := &cobra.Command{
		Use:   "login",
		Short: "Authorize against the OSM API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.OAuthClientID == "" {
				return fmt.Errorf("OSM_OAUTH_CLIENT_ID is not configured")
			}
			auth := osm.NewAuthenticator(cfg, logger)
			state := uuid.NewString()
			fmt.Fprintf(cmd.OutOrStdout(), "Open this URL in your browser and authorize the application:\n\n  %s\n\n", auth.AuthorizationURL(state))
			fmt.Fprint(cmd.OutOrStdout(), "Paste the authorization code here: ")

			var code string
			if _, err := fmt.Fscanln(cmd.InOrStdin(), &code); err != nil {
				return fmt.Errorf("reading authorization code: %w", err)
			}
			if _, err := auth.Exchange(context.Background(), code); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Authorization complete. Token saved.")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether credentials are saved for the active environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			auth := osm.NewAuthenticator(cfg, logger)
			env := "production"
			if cfg.UseDevAPI {
				env = "development"
			}
			if auth.HasToken() {
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in (%s API)\n", env)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Not logged in (%s API)\n", env)
			}
			return nil
		},
	}

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Remove saved credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			auth := osm.NewAuthenticator(cfg, logger)
			if err := auth.Store().Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Credentials removed.")
			return nil
		},
	}

	cmd.AddCommand(login, status, logout)
	return cmd
}

// newEngine loads the tag corpus for the local inspection commands. The
// store logs the load outcome itself.
func newEngine(cfg *config.Config, logger *logging.AppLogger) *tags.Engine {
	store := tags.NewStore(logger)
	store.Load(cfg.TagStandardsFile)
	return tags.NewEngine(store)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func parseCmd(cfg *config.Config, logger *logging.AppLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <request>",
		Short: "Parse a natural language editing request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := newEngine(cfg, logger)
			return printJSON(cmd, engine.Parser().Parse(args[0]))
		},
	}
}

func suggestCmd(cfg *config.Config, logger *logging.AppLogger) *cobra.Command {
	var policy string
	cmd := &cobra.Command{
		Use:   "suggest <description>",
		Short: "Suggest OSM tags for a place description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := newEngine(cfg, logger)
			return printJSON(cmd, engine.Process(args[0], nil, tags.MergePolicy(policy)))
		},
	}
	cmd.Flags().StringVar(&policy, "merge-policy", "", "conflict policy: keep_existing, use_new or ask")
	return cmd
}

func validateCmd(cfg *config.Config, logger *logging.AppLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <key=value> [key=value ...]",
		Short: "Validate OSM tags against known standards",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set := tags.TagSet{}
			for _, arg := range args {
				key, value, err := splitTagArg(arg)
				if err != nil {
					return err
				}
				set[key] = value
			}
			engine := newEngine(cfg, logger)
			results := engine.Validator().ValidateSet(set)
			if err := printJSON(cmd, results); err != nil {
				return err
			}
			if tags.HasErrors(results) {
				return fmt.Errorf("validation found error-level problems")
			}
			return nil
		},
	}
}

func splitTagArg(arg string) (string, string, error) {
	for i := 0; i < len(arg); i++ {
		if arg[i] == '=' {
			if i == 0 {
				break
			}
			return arg[:i], arg[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("invalid tag %q, want key=value", arg)
}
