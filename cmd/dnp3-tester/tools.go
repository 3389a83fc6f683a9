package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"avaneesh/dnp3-tester/internal/framedecode"
	"avaneesh/dnp3-tester/pkg/channel"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ports, err := channel.ListSerialPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
			return nil
		}
		sort.Strings(ports)
		for _, p := range ports {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>...",
	Short: "Decode a captured link frame given as hex",
	Example: `  dnp3-tester decode 0564 05c0 0100 0a00 e08c
  dnp3-tester decode "05:64:05:c0:01:00:0a:00:e0:8c"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := framedecode.DecodeHex(strings.Join(args, ""))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, summary.String())
		for _, line := range summary.Objects {
			fmt.Fprintln(out, "  "+line)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dnp3-tester %s (built %s)\n", Version, BuildTime)
	},
}
