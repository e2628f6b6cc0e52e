package main

import (
	"errors"
	"fmt"

	"github.com/containerlabs/layerkit/pkg/registry"
	"github.com/containerlabs/layerkit/pkg/store"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/spf13/cobra"
)

var pushStoreDir string

func newPushCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "push <ref>",
		Short: "Push an image from the local content store to its registry",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("push requires exactly one image ref")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error { return runPush(args[0]) },
	}
	c.Flags().StringVar(&pushStoreDir, "store", defaultStoreDir(), "local content store path")
	return c
}

func runPush(refStr string) error {
	s := store.NewAtDir(pushStoreDir)
	img, err := s.LoadImage(refStr)
	if err != nil {
		return fmt.Errorf("load %s from store: %w", refStr, err)
	}
	ref, err := name.ParseReference(refStr)
	if err != nil {
		return fmt.Errorf("parse ref %q: %w", refStr, err)
	}
	registryConfig, err := registry.New(refStr)
	if err != nil {
		return err
	}
	if err := registryConfig.Push(ref, img); err != nil {
		return err
	}
	digest, err := img.Digest()
	if err != nil {
		return err
	}
	fmt.Printf("%s@%s\n", ref.Context().Name(), digest.String())
	return nil
}
