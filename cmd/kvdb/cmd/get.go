package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errKeyNotFound = errors.New("key not found")

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a value for a key",
	Long: `Get a value for a key from the KVDB store.

Example:
  kvdb get mykey
  kvdb get counter --type i64`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")

		kv, _, err := openStore()
		if err != nil {
			return err
		}
		defer kv.Close()

		value, ok := kv.Get([]byte(args[0]))
		if !ok {
			return fmt.Errorf("%w: %s", errKeyNotFound, args[0])
		}

		text, err := formatValue(typ, value)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().String("type", typeBytes, "Value type: bytes, i64 or str")
}
