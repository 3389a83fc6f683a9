// Command dnp3-tester runs the DNP3 tester host: a web API that drives DNP3
// master and outstation sessions for an operator UI.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "dnp3-tester",
	Short: "DNP3 master/outstation test bench",
	Long: `dnp3-tester serves a web API for exercising DNP3 devices. Each operator
session can run a master that polls and controls a device, or an outstation
that simulates one. Every frame on the wire is captured for inspection and
pcap export.`,
	Example: `  dnp3-tester serve --listen 0.0.0.0:8080
  dnp3-tester ports
  dnp3-tester decode "05 64 05 c0 01 00 0a 00 e0 8c"`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "dnp3-tester.yaml", "settings file (YAML)")
	flags.StringVar(&logLevel, "log-level", "", "console log level: debug, info, warn, error (overrides settings)")
	flags.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		// accept --log_level as well
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	rootCmd.AddCommand(serveCmd, portsCmd, decodeCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
