package layerkit

import (
	"fmt"

	"github.com/containerlabs/layerkit/pkg/image"
	"github.com/containerlabs/layerkit/pkg/layers"
	"github.com/containerlabs/layerkit/pkg/pushed"
	"github.com/containerlabs/layerkit/pkg/registry"
	schemav1 "github.com/containerlabs/layerkit/pkg/schema/v1"
	"github.com/containerlabs/layerkit/pkg/store"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
)

// Run is what you call if you have a complete config and want to push an artifact
// - Depends on a zap.ReplaceGlobals logger
// - No side effects other than push to config.Tag
// - Not affected by environment, i.e. config defines a repeatable build
func Run(config schemav1.BuildConfig) (*pushed.BuildOutput, error) {
	buildLayers, err := RunLayers(config)
	if err != nil {
		return nil, err
	}
	return RunPush(config, buildLayers)
}

// RunLayers is the file system access part of a run
func RunLayers(config schemav1.BuildConfig) ([]v1.Layer, error) {
	return layers.Build(config.Layers)
}

// RunPush is the remote access part of a run: assemble onto base and push
func RunPush(config schemav1.BuildConfig, buildLayers []v1.Layer) (*pushed.BuildOutput, error) {
	if config.Tag == "" {
		return nil, fmt.Errorf("config tag must be set")
	}

	registryConfig, err := registry.New(config.Base, config.Tag)
	if err != nil {
		return nil, err
	}

	result, err := assemble(config, registryConfig, buildLayers)
	if err != nil {
		return nil, err
	}

	tagRef, err := name.ParseReference(config.Tag)
	if err != nil {
		return nil, fmt.Errorf("parse tag ref %q: %w", config.Tag, err)
	}
	if err := registryConfig.Push(tagRef, result.Image); err != nil {
		return nil, fmt.Errorf("push %s: %w", config.Tag, err)
	}

	artifact, err := pushed.NewSingleImage(config.Tag, result.Digest, result.Image, config.Base)
	if err != nil {
		return nil, err
	}
	return pushed.NewBuildOutput(config.Tag, artifact)
}

// RunSave is the local variant of RunPush: assemble onto base and save
// into a content-addressed store instead of pushing
func RunSave(config schemav1.BuildConfig, buildLayers []v1.Layer, s *store.Store) (*pushed.BuildOutput, error) {
	if config.Tag == "" {
		return nil, fmt.Errorf("config tag must be set")
	}

	registryConfig, err := registry.New(config.Base)
	if err != nil {
		return nil, err
	}

	result, err := assemble(config, registryConfig, buildLayers)
	if err != nil {
		return nil, err
	}

	if _, err := s.SaveImage(config.Tag, result.Image); err != nil {
		return nil, fmt.Errorf("save %s: %w", config.Tag, err)
	}

	artifact, err := pushed.NewSingleImage(config.Tag, result.Digest, result.Image, config.Base)
	if err != nil {
		return nil, err
	}
	return pushed.NewBuildOutput(config.Tag, artifact)
}

func assemble(config schemav1.BuildConfig, registryConfig *registry.RegistryConfig, buildLayers []v1.Layer) (*image.Result, error) {
	assembler, err := image.NewAssembler(&config, registryConfig)
	if err != nil {
		return nil, err
	}
	result, err := assembler.Assemble(buildLayers...)
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	return result, nil
}
