package image

import (
	"fmt"

	"github.com/containerlabs/layerkit/pkg/registry"
	schema "github.com/containerlabs/layerkit/pkg/schema/v1"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"go.uber.org/zap"
)

// Assembler appends layers to a base and applies image config,
// producing a pushable image. One Assembler per build.
type Assembler struct {
	config    *schema.BuildConfig
	registry  *registry.RegistryConfig
	baseEmpty bool
	baseRef   name.Reference
	mediaType types.MediaType
	layerType types.MediaType
}

type Result struct {
	Image      v1.Image
	Digest     v1.Hash
	BaseDigest v1.Hash
	MediaType  types.MediaType
}

func NewAssembler(config *schema.BuildConfig, registryConfig *registry.RegistryConfig) (*Assembler, error) {
	a := Assembler{
		config:   config,
		registry: registryConfig,
	}
	if config.Base == "" {
		a.baseEmpty = true
	} else {
		var err error
		a.baseRef, err = name.ParseReference(config.Base)
		if err != nil {
			return nil, fmt.Errorf("parse base ref %q: %w", config.Base, err)
		}
		zap.L().Debug("base image", zap.String("ref", a.baseRef.String()))
	}
	return &a, nil
}

// Assemble appends the ordered layers onto the base and applies runtime
// config and annotations. Layer order in the resulting manifest is the
// order given here, after the base's layers.
func (a *Assembler) Assemble(layers ...v1.Layer) (*Result, error) {
	baseImage, mediaType, err := base(a.baseRef, a.registry, a.config.Platforms)
	if err != nil {
		return nil, err
	}
	a.mediaType = mediaType
	a.layerType = LayerTypeFor(mediaType)

	baseDigest, err := baseImage.Digest()
	if err != nil {
		return nil, fmt.Errorf("base image digest: %w", err)
	}

	img, err := mutate.AppendLayers(baseImage, layers...)
	if err != nil {
		return nil, fmt.Errorf("append %d layers: %w", len(layers), err)
	}

	img, err = a.applyRuntime(img)
	if err != nil {
		return nil, err
	}

	if !a.baseEmpty {
		img = annotateBase(img, a.baseRef, baseDigest)
	}

	digest, err := img.Digest()
	if err != nil {
		return nil, fmt.Errorf("result image digest: %w", err)
	}
	zap.L().Info("assembled",
		zap.String("digest", digest.String()),
		zap.String("mediaType", string(mediaType)),
		zap.Int("appendedLayers", len(layers)),
	)

	return &Result{
		Image:      img,
		Digest:     digest,
		BaseDigest: baseDigest,
		MediaType:  mediaType,
	}, nil
}

// applyRuntime writes config.Runtime into the image config file
func (a *Assembler) applyRuntime(img v1.Image) (v1.Image, error) {
	runtime := a.config.Runtime
	if len(runtime.Env) == 0 && len(runtime.Entrypoint) == 0 && len(runtime.Cmd) == 0 &&
		runtime.WorkingDir == "" && len(runtime.Labels) == 0 {
		return img, nil
	}
	cf, err := img.ConfigFile()
	if err != nil {
		return nil, fmt.Errorf("base config file: %w", err)
	}
	cfg := cf.DeepCopy()
	if len(runtime.Env) > 0 {
		cfg.Config.Env = applyEnvOverrides(cfg.Config.Env, runtime.Env)
	}
	if len(runtime.Entrypoint) > 0 {
		cfg.Config.Entrypoint = runtime.Entrypoint
		// entrypoint replacement invalidates inherited cmd
		if len(runtime.Cmd) == 0 {
			cfg.Config.Cmd = nil
		}
	}
	if len(runtime.Cmd) > 0 {
		cfg.Config.Cmd = runtime.Cmd
	}
	if runtime.WorkingDir != "" {
		cfg.Config.WorkingDir = runtime.WorkingDir
	}
	if len(runtime.Labels) > 0 {
		if cfg.Config.Labels == nil {
			cfg.Config.Labels = make(map[string]string, len(runtime.Labels))
		}
		for k, v := range runtime.Labels {
			cfg.Config.Labels[k] = v
		}
	}
	return mutate.ConfigFile(img, cfg)
}

// LayerType returns the media type for appended layers, valid after Assemble.
func (a *Assembler) LayerType() types.MediaType {
	if a.layerType == "" {
		zap.L().Fatal("layer type not known before Assemble has been called")
	}
	return a.layerType
}
