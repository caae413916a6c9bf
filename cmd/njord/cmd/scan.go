package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/njordb/njord/pkg/kv"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [prefix]",
	Short: "List keys and values in key order",
	Long: `Walk a bucket in encoded-key byte order, printing each pair.
An optional prefix narrows the listing.

Example:
  njord scan
  njord scan --bucket users a`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, ok := storeFromContext(cmd)
		if !ok {
			return fmt.Errorf("store not found in context")
		}
		bucketName, _ := cmd.Flags().GetString("bucket")
		keysOnly, _ := cmd.Flags().GetBool("keys-only")

		var prefix string
		if len(args) == 1 {
			prefix = args[0]
		}

		bucket, err := kv.NewBucket(store, bucketName, kv.Raw{}, kv.Raw{})
		if err != nil {
			return err
		}

		it, err := bucket.Iter()
		if err != nil {
			return fmt.Errorf("starting scan: %w", err)
		}
		defer it.Close()

		for it.Next() {
			item := it.Item()
			key := string(item.RawKey())
			if prefix != "" && !strings.HasPrefix(key, prefix) {
				continue
			}
			if keysOnly {
				cmd.Printf("%s\n", key)
				continue
			}
			cmd.Printf("%s\t%s\n", key, string(item.RawValue()))
		}
		if err := it.Err(); err != nil {
			return fmt.Errorf("scanning: %w", err)
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().StringP("bucket", "b", "", "Bucket name (default: the default bucket)")
	scanCmd.Flags().Bool("keys-only", false, "Print keys without values")
	rootCmd.AddCommand(scanCmd)
}
