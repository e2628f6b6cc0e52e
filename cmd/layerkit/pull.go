package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/containerlabs/layerkit/pkg/platform"
	"github.com/containerlabs/layerkit/pkg/pushed"
	"github.com/containerlabs/layerkit/pkg/registry"
	"github.com/containerlabs/layerkit/pkg/store"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	pullStoreDir string
	pullPlatform string
)

func newPullCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "pull <ref>",
		Short: "Fetch an image from a registry into the local content store",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("pull requires exactly one image ref")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error { return runPull(args[0], pullPlatform) },
	}
	c.Flags().StringVar(&pullStoreDir, "store", defaultStoreDir(), "local content store path")
	c.Flags().StringVar(&pullPlatform, "platform", "", "platform to select when the ref is an image index, e.g. linux/amd64")
	return c
}

func runPull(refStr string, platformStr string) error {
	ref, err := name.ParseReference(refStr)
	if err != nil {
		return fmt.Errorf("parse ref %q: %w", refStr, err)
	}
	registryConfig, err := registry.New(refStr)
	if err != nil {
		return err
	}
	desc, err := registryConfig.Get(ref)
	if err != nil {
		return err
	}
	var img v1.Image
	if desc.MediaType.IsIndex() {
		idx, err := desc.ImageIndex()
		if err != nil {
			return err
		}
		img, err = pullIndexPlatform(refStr, idx, platformStr)
		if err != nil {
			return err
		}
	} else {
		img, err = desc.Image()
		if err != nil {
			return err
		}
	}
	s := store.NewAtDir(pullStoreDir)
	digest, err := s.SaveImage(refStr, img)
	if err != nil {
		return err
	}
	zap.L().Info("pulled",
		zap.String("ref", refStr),
		zap.String("digest", digest.String()),
		zap.String("store", pullStoreDir),
	)
	fmt.Printf("%s@%s\n", ref.Context().Name(), digest.String())
	return nil
}

// pullIndexPlatform picks the manifest entry of idx matching platformStr.
// Without a platform the pull fails, listing what the index offers.
func pullIndexPlatform(refStr string, idx v1.ImageIndex, platformStr string) (v1.Image, error) {
	idxm, err := idx.IndexManifest()
	if err != nil {
		return nil, err
	}
	available := platform.Strings(platform.FromIndexManifest(idxm))
	if platformStr == "" {
		return nil, fmt.Errorf("%s is an image index, pass --platform; available: %s",
			refStr, strings.Join(available, ", "))
	}
	requested, err := v1.ParsePlatform(platformStr)
	if err != nil {
		return nil, fmt.Errorf("platform %q: %w", platformStr, err)
	}
	d, err := platform.SelectManifest(idxm, *requested)
	if err != nil {
		return nil, err
	}
	idxDigest, err := idx.Digest()
	if err != nil {
		return nil, err
	}
	artifact, err := pushed.NewIndexImage(refStr, idxDigest, idx, "")
	if err != nil {
		return nil, err
	}
	zap.L().Info("index",
		zap.String("tag", artifact.TagRef),
		zap.Strings("available", artifact.Platforms),
		zap.String("selected", requested.String()),
	)
	return idx.Image(d.Digest)
}
