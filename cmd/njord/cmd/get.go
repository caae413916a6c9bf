package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/njordb/njord/pkg/kv"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get the value stored for a key",
	Long: `Get the value stored for a key.

Example:
  njord get mykey
  njord get --bucket users ada`,
	Args: cobra.ExactArgs(1),
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

		value, found, err := bucket.Get([]byte(args[0]))
		if err != nil {
			return fmt.Errorf("getting value: %w", err)
		}
		if !found {
			return fmt.Errorf("key not found: %s", args[0])
		}

		cmd.Printf("%s\n", string(value))
		return nil
	},
}

func init() {
	getCmd.Flags().StringP("bucket", "b", "", "Bucket name (default: the default bucket)")
	rootCmd.AddCommand(getCmd)
}
