// Package cli implements the command-line interface for the DevDocs CLI.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/colthorp/devdocs-cli-go/internal/api"
	"github.com/colthorp/devdocs-cli-go/internal/cache"
	"github.com/colthorp/devdocs-cli-go/internal/core"
	"github.com/colthorp/devdocs-cli-go/internal/history"
	"github.com/colthorp/devdocs-cli-go/internal/queries"
)

// Commands carrying this annotation run without a loaded session.
const skipSession = "devdocs/skip-session"

// Global flags
var (
	verbose bool
	quiet   bool
	raw     bool
)

// session is everything a command needs once configuration is loaded.
type session struct {
	cfg     core.Config
	logger  zerolog.Logger
	cache   *cache.Manager
	queries *queries.Client
}

var sess *session

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:               "devdocs",
	Short:             "DevDocs CLI – save and search code solutions",
	Long:              `A command-line client for a DevDocs knowledge base: store code solutions, search them semantically and keep an eye on the dashboard.`,
	Version:           core.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: openSession,
	PersistentPostRun: func(*cobra.Command, []string) { closeSession() },
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	closeSession()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", userMessage(err))
		os.Exit(1)
	}
}

func init() {
	// Persistent flags available to all commands
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose debug output to stderr")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress progress messages")
	rootCmd.PersistentFlags().BoolVar(&raw, "raw", false, "Emit raw JSON instead of formatted output")
}

func openSession(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipSession] != "" {
		return nil
	}
	cfg, err := core.Load()
	if err != nil {
		return err
	}
	sess = newSession(cfg)
	return nil
}

func newSession(cfg core.Config) *session {
	logger := core.NewLogger(cfg, verbose)
	client := api.NewClient(api.Options{
		BaseURL:     cfg.APIBaseURL,
		Timeout:     cfg.RequestTimeout,
		AccessToken: cfg.AccessToken,
		AnonKey:     cfg.SupabaseAnonKey,
		Logger:      logger,
	})
	m := cache.NewManager(cache.WithLogger(logger))
	return &session{
		cfg:    cfg,
		logger: logger,
		cache:  m,
		queries: queries.NewClient(m, api.NewDevDocsAPI(client),
			queries.WithHistory(openHistory(cfg)),
			queries.WithLogger(logger),
		),
	}
}

func openHistory(cfg core.Config) *history.Store {
	return history.NewStore(history.NewFilesystemBackend(cfg.DataDir), core.RecentSearchLimit)
}

func closeSession() {
	if sess != nil {
		sess.cache.Close()
		sess = nil
	}
}

// userMessage prefers the API's user-facing message over the raw error.
func userMessage(err error) string {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	if apiErr.Detail != "" && apiErr.Kind != api.KindValidation {
		return fmt.Sprintf("%s (%s)", apiErr.Message, apiErr.Detail)
	}
	return apiErr.Message
}
