package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-metrology/zygo"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <file.dat>",
	Short: "Dump the header of an interferometer .dat file",
	Long: `Decode the binary header of an interferometer .dat file and print
every field as key=value, sorted by name.

Example:
  metro inspect measurement.dat`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		meta, err := zygo.DecodeHeader(raw)
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(meta))
		for k := range meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%v\n", k, meta[k])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
