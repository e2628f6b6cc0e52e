package registry

import (
	"fmt"

	"github.com/containerlabs/layerkit/pkg/platform"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
)

// Image fetches a single-platform image by reference.
func (c *RegistryConfig) Image(ref name.Reference) (v1.Image, error) {
	img, err := remote.Image(ref, c.CraneOptions.Remote...)
	if err != nil {
		return nil, fmt.Errorf("pulling %s: %w", ref.String(), err)
	}
	return img, nil
}

// Get fetches a manifest descriptor without resolving indexes to a
// platform image, which remote.Image would do.
func (c *RegistryConfig) Get(ref name.Reference) (*remote.Descriptor, error) {
	desc, err := remote.Get(ref, c.CraneOptions.Remote...)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", ref.String(), err)
	}
	return desc, nil
}

// ImageForPlatform fetches ref, resolving an image index to the manifest
// entry matching the requested platform. A nil platform resolves indexes
// the way remote.Image would, and single-image refs are returned as-is.
func (c *RegistryConfig) ImageForPlatform(ref name.Reference, requested *v1.Platform) (v1.Image, error) {
	desc, err := c.Get(ref)
	if err != nil {
		return nil, err
	}
	if !desc.MediaType.IsIndex() || requested == nil {
		return desc.Image()
	}
	idx, err := desc.ImageIndex()
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", ref.String(), err)
	}
	idxm, err := idx.IndexManifest()
	if err != nil {
		return nil, fmt.Errorf("index manifest %s: %w", ref.String(), err)
	}
	d, err := platform.SelectManifest(idxm, *requested)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref.String(), err)
	}
	return idx.Image(d.Digest)
}
