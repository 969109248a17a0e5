package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a key",
	Long: `Delete a key from the KVDB store. Deleting a missing key writes nothing.

Example:
  kvdb delete mykey`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, _, err := openStore()
		if err != nil {
			return err
		}
		defer kv.Close()

		existed, err := kv.Delete([]byte(args[0]))
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", args[0], err)
		}

		if existed {
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "not found")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
