package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/kvdb/pkg/store"
)

// setCmd represents the set command
var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a key-value pair",
	Long: `Set a key-value pair in the KVDB store.

Nothing is written when the mode does not allow the change or when the key
already holds the same value.

Example:
  kvdb set mykey myvalue
  kvdb set mykey myvalue --mode insert
  kvdb set counter 42 --type i64`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		modeName, _ := cmd.Flags().GetString("mode")
		typ, _ := cmd.Flags().GetString("type")

		mode, err := store.ParseSetMode(modeName)
		if err != nil {
			return err
		}
		value, err := encodeValue(typ, args[1])
		if err != nil {
			return err
		}

		kv, _, err := openStore()
		if err != nil {
			return err
		}
		defer kv.Close()

		changed, err := kv.Set([]byte(args[0]), value, mode)
		if err != nil {
			return fmt.Errorf("failed to set %s: %w", args[0], err)
		}

		if changed {
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "unchanged (mode %s)\n", mode)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setCmd)
	setCmd.Flags().String("mode", store.Upsert.String(), "Set mode: upsert, insert or update")
	setCmd.Flags().String("type", typeBytes, "Value type: bytes, i64 or str")
}
