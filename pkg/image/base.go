package image

import (
	"fmt"

	"github.com/containerlabs/layerkit/pkg/platform"
	"github.com/containerlabs/layerkit/pkg/registry"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"go.uber.org/zap"
)

// base produces/retrieves the base image,
// basically https://github.com/google/go-containerregistry/blob/v0.13.0/cmd/crane/cmd/append.go#L52
// When the base ref is an index, platforms selects the entry to build on.
func base(baseRef name.Reference, config *registry.RegistryConfig, platforms []string) (v1.Image, types.MediaType, error) {
	var img v1.Image
	var err error
	var mediaType = types.OCIManifestSchema1
	var configType = types.OCIConfigJSON
	if baseRef == nil {
		zap.L().Info("base unspecified, using empty image",
			zap.String("type", string(mediaType)),
			zap.String("configType", string(configType)),
		)
		img = empty.Image
		img = mutate.MediaType(img, mediaType)
		img = mutate.ConfigMediaType(img, configType)
	} else {
		var requested *v1.Platform
		if len(platforms) > 0 {
			parsed, err := platform.Parse(platforms)
			if err != nil {
				return nil, "", err
			}
			requested = &parsed[0]
			if len(parsed) > 1 {
				zap.L().Warn("single-image build selects base for the first platform only",
					zap.Strings("platforms", platforms),
				)
			}
			zap.L().Debug("base platform", zap.String("platform", requested.String()))
		}
		img, err = config.ImageForPlatform(baseRef, requested)
		if err != nil {
			return nil, "", fmt.Errorf("pulling %s: %w", baseRef.String(), err)
		}
		mediaType, err = img.MediaType()
		if err != nil {
			return nil, "", fmt.Errorf("getting base image media type: %w", err)
		}
	}
	return img, mediaType, nil
}

// LayerTypeFor returns the layer media type matching a base manifest type,
// https://github.com/google/go-containerregistry/blob/v0.13.0/pkg/crane/append.go#L60
func LayerTypeFor(manifestType types.MediaType) types.MediaType {
	if manifestType == types.OCIManifestSchema1 {
		return types.OCILayer
	}
	return types.DockerLayer
}
