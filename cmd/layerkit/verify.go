package main

import (
	"fmt"

	"github.com/containerlabs/layerkit/pkg/store"
	"github.com/spf13/cobra"
)

var verifyStoreDir string

func newVerifyCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "verify",
		Short: "Check that every blob in the local content store matches its digest",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := store.NewAtDir(verifyStoreDir).Verify()
			if err != nil {
				return err
			}
			if !result.Ok() {
				for _, dgst := range result.Corrupt {
					fmt.Printf("corrupt: %s\n", dgst.String())
				}
				return fmt.Errorf("%d of %d blobs corrupt", len(result.Corrupt), result.Checked)
			}
			fmt.Printf("ok: %d blobs\n", result.Checked)
			return nil
		},
	}
	c.Flags().StringVar(&verifyStoreDir, "store", defaultStoreDir(), "local content store path")
	return c
}
