package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/njordb/njord/pkg/kv"
)

// setCmd represents the set command
var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a value under a key",
	Long: `Store a value under a key, replacing any previous value.

Example:
  njord set mykey myvalue
  njord set --bucket users ada '{"name":"Ada"}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, ok := storeFromContext(cmd)
		if !ok {
			return fmt.Errorf("store not found in context")
		}
		bucketName, _ := cmd.Flags().GetString("bucket")

		bucket, err := kv.NewBucket(store, bucketName, kv.Raw{}, kv.Raw{})
		if err != nil {
			return err
		}

		prev, replaced, err := bucket.Set([]byte(args[0]), []byte(args[1]))
		if err != nil {
			return fmt.Errorf("storing value: %w", err)
		}
		if replaced {
			cmd.Printf("replaced previous value %q\n", string(prev))
		}
		return nil
	},
}

func init() {
	setCmd.Flags().StringP("bucket", "b", "", "Bucket name (default: the default bucket)")
	rootCmd.AddCommand(setCmd)
}
