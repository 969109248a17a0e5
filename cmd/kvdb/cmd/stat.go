package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/kvdb/pkg/store"
)

// statCmd represents the stat command
var statCmd = &cobra.Command{
	Use:   "stat",
	Short: "Open the store and print what replay found",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, result, err := openStore()
		if err != nil {
			return err
		}
		defer kv.Close()

		printStats(cmd.OutOrStdout(), kv.Path(), result, kv.Stats())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statCmd)
}

func printStats(w io.Writer, path string, result *store.RecoveryResult, stats *store.StoreStats) {
	fmt.Fprintf(w, "Path:             %s\n", path)
	fmt.Fprintf(w, "Keys:             %d\n", stats.Keys)
	fmt.Fprintf(w, "Data size:        %d bytes\n", stats.DataSize)
	fmt.Fprintf(w, "Records replayed: %d\n", result.RecordsReplayed)
	fmt.Fprintf(w, "Tombstones:       %d\n", result.Tombstones)
	fmt.Fprintf(w, "Recovery time:    %s\n", result.RecoveryTime)
	if result.Recovered() {
		fmt.Fprintf(w, "Truncated bytes:  %d\n", result.TruncatedBytes)
		fmt.Fprintf(w, "Corruption:       %v\n", result.Corruption)
	}
	if result.DiscardedPath != "" {
		fmt.Fprintf(w, "Discarded bytes:  %s\n", result.DiscardedPath)
	}
}
