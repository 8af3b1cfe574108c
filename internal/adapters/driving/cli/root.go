// Package cli implements the sercha-ingest command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

var version = "dev"

var (
	configPath string
	verbose    bool
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "sercha-ingest",
	Short: "Resumable document ingestion from connected sources",
	Long: `sercha-ingest synchronises documents from Google Drive, Dropbox, upload
directories and web pages into object storage, resuming interrupted runs
from their last checkpoint.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.sercha-ingest/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")
}

// Wiring builds the services for a loaded configuration.
type Wiring func(cfg *file.Config) (*Services, error)

var (
	wiring    Wiring
	wired     *Services
	config    *file.Config
	logCloser io.Closer
	wireMu    sync.Mutex
)

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

// SetWiring registers the function that builds services on first use.
func SetWiring(w Wiring) {
	wiring = w
}

// SetServices injects prebuilt services.
func SetServices(s *Services) {
	wired = s
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	defer shutdown()
	return rootCmd.ExecuteContext(ctx)
}

// setup loads configuration and configures logging before any command runs.
func setup(cmd *cobra.Command, _ []string) error {
	if config == nil {
		cfg, err := file.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		config = &cfg
	}

	logger.SetVerbose(verbose || config.Log.Verbose)
	format := config.Log.Format
	if logFormat != "" {
		format = logger.Format(logFormat)
	}
	if format != logger.FormatText && format != logger.FormatJSON {
		return fmt.Errorf("unknown log format %q", format)
	}
	logger.SetFormat(format)
	if fc, ok := config.LogFile(); ok && logCloser == nil {
		logCloser = logger.SetFile(fc, true)
	}
	logger.Debug("%s: config loaded", cmd.Name())
	return nil
}

// requireServices returns the wired services, building them on first use.
func requireServices() (*Services, error) {
	wireMu.Lock()
	defer wireMu.Unlock()
	if wired != nil {
		return wired, nil
	}
	if wiring == nil || config == nil {
		return nil, errors.New("services not configured")
	}
	s, err := wiring(config)
	if err != nil {
		return nil, err
	}
	wired = s
	return wired, nil
}

func shutdown() {
	if wired != nil && wired.Close != nil {
		if err := wired.Close(); err != nil {
			logger.Warn("shutdown: %v", err)
		}
	}
	if logCloser != nil {
		_ = logCloser.Close()
	}
}
