// Package cli implements the cobra command tree for the legisrag binary.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/juristec/legisrag/internal/logger"
)

var version = "dev"

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "legisrag",
	Short: "RAG index for Brazilian legal documents",
	Long: `legisrag indexes Brazilian legal documents (.docx, .pdf) into a
vector store and retrieves grounded, cited context for legal and
public-exam questions.`,
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.legisrag/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the CLI. The version is stamped by the build.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.Execute()
}
