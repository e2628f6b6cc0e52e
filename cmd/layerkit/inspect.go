package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/containerlabs/layerkit/pkg/manifest"
	"github.com/containerlabs/layerkit/pkg/registry"
	"github.com/containerlabs/layerkit/pkg/store"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/spf13/cobra"
)

var (
	inspectStoreDir string
	inspectLocal    bool
	inspectPlatform string
)

func newInspectCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "inspect <ref>",
		Short: "Print the validated manifest of an image",
		Args:  exactlyOneRef,
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := resolveImage(args[0], inspectLocal, inspectStoreDir, inspectPlatform)
			if err != nil {
				return err
			}
			raw, err := img.RawManifest()
			if err != nil {
				return err
			}
			m, err := manifest.Parse(raw)
			if err != nil {
				return fmt.Errorf("manifest of %s: %w", args[0], err)
			}
			out, err := json.MarshalIndent(m, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, string(out))
			return nil
		},
	}
	c.Flags().BoolVar(&inspectLocal, "local", false, "read from the local content store instead of the registry")
	c.Flags().StringVar(&inspectStoreDir, "store", defaultStoreDir(), "local content store path")
	c.Flags().StringVar(&inspectPlatform, "platform", "", "platform to select when the ref is an image index, e.g. linux/amd64")
	return c
}

func newDigestCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "digest <ref>",
		Short: "Print the digest of an image",
		Args:  exactlyOneRef,
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := resolveImage(args[0], inspectLocal, inspectStoreDir, inspectPlatform)
			if err != nil {
				return err
			}
			digest, err := img.Digest()
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, digest.String())
			return nil
		},
	}
	c.Flags().BoolVar(&inspectLocal, "local", false, "read from the local content store instead of the registry")
	c.Flags().StringVar(&inspectStoreDir, "store", defaultStoreDir(), "local content store path")
	c.Flags().StringVar(&inspectPlatform, "platform", "", "platform to select when the ref is an image index, e.g. linux/amd64")
	return c
}

func exactlyOneRef(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errors.New("requires exactly one image ref")
	}
	return nil
}

// resolveImage reads an image from the local store or the registry.
// A platform applies to registry refs that point at an image index.
func resolveImage(refStr string, local bool, storeDir string, platformStr string) (v1.Image, error) {
	if local {
		if platformStr != "" {
			return nil, errors.New("--platform applies to registry refs, the local store holds single images")
		}
		return store.NewAtDir(storeDir).LoadImage(refStr)
	}
	ref, err := name.ParseReference(refStr)
	if err != nil {
		return nil, fmt.Errorf("parse ref %q: %w", refStr, err)
	}
	registryConfig, err := registry.New(refStr)
	if err != nil {
		return nil, err
	}
	if platformStr == "" {
		return registryConfig.Image(ref)
	}
	requested, err := v1.ParsePlatform(platformStr)
	if err != nil {
		return nil, fmt.Errorf("platform %q: %w", platformStr, err)
	}
	return registryConfig.ImageForPlatform(ref, requested)
}
