// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/WeirdyBenji/librohc/internal/config"
	"github.com/WeirdyBenji/librohc/internal/log"
)

var (
	configFile string
	cfg        *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rohcdump",
	Short: "rohcdump - ROHC stream decompression tool",
	Long: `rohcdump feeds captured ROHC frames through the librohc decompressor
and prints the reconstructed IP packets.

Supported input: pcap capture files and hex dump files (one frame per line).
The IP-only profile (RFC 3843) is built in; see 'rohcdump profiles'.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configFile != "" {
			cfg, err = config.Load(configFile)
			if err != nil {
				return err
			}
		} else {
			cfg = config.Default()
		}
		return log.Init(&cfg.Log)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path")

	rootCmd.AddCommand(decompressCmd)
	rootCmd.AddCommand(profilesCmd)
}
