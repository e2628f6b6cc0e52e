package layers

import (
	"errors"
	"fmt"

	"github.com/containerlabs/layerkit/pkg/localdir"
	schema "github.com/containerlabs/layerkit/pkg/schema/v1"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/moby/patternmatcher"
)

type LayerBuilder func() (v1.Layer, error)

// NewLayerBuilder maps one config layer item to a builder,
// requiring exactly one layer type per item.
func NewLayerBuilder(cfg schema.Layer) (LayerBuilder, error) {
	if cfg.LocalFile.Path != "" {
		if cfg.LocalDir.Path != "" {
			return nil, errors.New("each layer item must have exactly one type, got localFile and localDir")
		}
		return configureFile(cfg.LocalFile, cfg.Attributes)
	}
	if cfg.LocalDir.Path != "" {
		return configureDir(cfg.LocalDir, cfg.Attributes)
	}
	return nil, errors.New("no layer builder config found")
}

func configureDir(cfg schema.LocalDir, attributes schema.LayerAttributes) (LayerBuilder, error) {
	dir := localdir.Dir{
		Path: cfg.Path,
	}
	if cfg.ContainerPath != "" {
		dir.ContainerPath = localdir.NewPathMapperPrepend(cfg.ContainerPath)
	}
	if len(cfg.Ignore) > 0 {
		var err error
		dir.Ignore, err = patternmatcher.New(cfg.Ignore)
		if err != nil {
			return nil, fmt.Errorf("patternmatcher from: %v", cfg.Ignore)
		}
	}
	if cfg.MaxFiles > 0 {
		dir.MaxFiles = cfg.MaxFiles
	}
	if cfg.MaxSize != "" {
		s, err := localdir.NewSize(cfg.MaxSize)
		if err != nil {
			return nil, err
		}
		dir.MaxSize = s
	}
	return func() (v1.Layer, error) {
		return localdir.FromFilesystem(dir, attributes)
	}, nil
}

func configureFile(cfg schema.LocalFile, attributes schema.LayerAttributes) (LayerBuilder, error) {
	file := localdir.File{
		Path: cfg.Path,
	}
	if cfg.ContainerPath != "" {
		file.ContainerPath = localdir.NewPathMapperPrepend(cfg.ContainerPath)
	}
	if cfg.MaxSize != "" {
		s, err := localdir.NewSize(cfg.MaxSize)
		if err != nil {
			return nil, err
		}
		file.MaxSize = s
	}
	return func() (v1.Layer, error) {
		return localdir.FromFile(file, attributes)
	}, nil
}

// Build runs all builders for a config in declared order.
// Layer order is significant and preserved through to the manifest.
func Build(cfg []schema.Layer) ([]v1.Layer, error) {
	builders := make([]LayerBuilder, len(cfg))
	for i, layerCfg := range cfg {
		b, err := NewLayerBuilder(layerCfg)
		if err != nil {
			return nil, fmt.Errorf("layer %d config: %w", i, err)
		}
		builders[i] = b
	}
	result := make([]v1.Layer, len(builders))
	for i, builder := range builders {
		layer, err := builder()
		if err != nil {
			return nil, fmt.Errorf("layer %d build: %w", i, err)
		}
		result[i] = layer
	}
	return result, nil
}
