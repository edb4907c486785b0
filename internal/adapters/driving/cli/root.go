// Package cli implements the vellum command line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vellum-labs/vellum/internal/config"
	"github.com/vellum-labs/vellum/internal/core/ports/driving"
	"github.com/vellum-labs/vellum/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Package-level services, wired lazily by the commands that need them.
// Tests replace them directly.
var (
	appConfig     *config.Config
	ingestService driving.Ingestor
	chatService   driving.Answerer
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "vellum",
	Short: "Ingest PDFs and ask questions about them",
	Long: `Vellum ingests PDF documents through an asynchronous pipeline
(extract, chunk, embed, index) and answers questions grounded on the
indexed content.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.Init(verbose); err != nil {
			return fmt.Errorf("initialising logger: %w", err)
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		appConfig = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	defer logger.Sync()
	return rootCmd.Execute()
}
