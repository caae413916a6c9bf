package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/njordb/njord/pkg/kv"
)

// delCmd represents the del command
var delCmd = &cobra.Command{
	Use:   "del <key>",
	Short: "Delete a key",
	Long: `Delete a key and its value.

Example:
  njord del mykey`,
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

		_, existed, err := bucket.Remove([]byte(args[0]))
		if err != nil {
			return fmt.Errorf("deleting key: %w", err)
		}
		if !existed {
			cmd.Printf("key not found: %s\n", args[0])
		}
		return nil
	},
}

func init() {
	delCmd.Flags().StringP("bucket", "b", "", "Bucket name (default: the default bucket)")
	rootCmd.AddCommand(delCmd)
}
