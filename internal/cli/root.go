package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph475/e-commerce/internal/config"
)

// NewRootCmd builds the command tree. Running it without a subcommand serves HTTP.
func NewRootCmd(version string) *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:   "qrpay",
		Short: "QR payment backend for the POS",
		Long: `qrpay issues dynamic QR Ph payment codes for POS orders and tracks each
payment from creation until it is completed, cancelled, or expires.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to a YAML config file")

	load := func() (config.Config, error) {
		return config.Load(cfgPath)
	}

	serve := newServeCmd(load)
	root.RunE = serve.RunE

	root.AddCommand(serve)
	root.AddCommand(newEncodeCmd(load))
	root.AddCommand(newDecodeCmd())
	root.AddCommand(newHistoryCmd(load))
	return root
}

// Execute runs the root command
func Execute(version string) error {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
