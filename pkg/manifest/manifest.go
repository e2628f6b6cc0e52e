// Package manifest validates OCI image manifests and descriptors.
//
// The invariants checked here are the distribution spec's: a descriptor's
// digest uniquely and verifiably identifies its content, and layers are an
// ordered sequence applied in sequence to reconstruct a filesystem.
package manifest

import (
	"bytes"
	"fmt"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"github.com/opencontainers/go-digest"
)

const SupportedSchemaVersion = 2

// Parse decodes manifest JSON and validates it.
func Parse(raw []byte) (*v1.Manifest, error) {
	m, err := v1.ParseManifest(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the structural invariants of an image manifest.
func Validate(m *v1.Manifest) error {
	if m.SchemaVersion != SupportedSchemaVersion {
		return fmt.Errorf("unsupported schemaVersion %d, want %d", m.SchemaVersion, SupportedSchemaVersion)
	}
	if !isManifestMediaType(m.MediaType) {
		return fmt.Errorf("mediaType %q is not an image manifest type", m.MediaType)
	}
	if err := ValidateDescriptor(m.Config); err != nil {
		return fmt.Errorf("config descriptor: %w", err)
	}
	if !isConfigMediaType(m.Config.MediaType) {
		return fmt.Errorf("config descriptor: mediaType %q is not a config type", m.Config.MediaType)
	}
	for i, layer := range m.Layers {
		if err := ValidateDescriptor(layer); err != nil {
			return fmt.Errorf("layer %d descriptor: %w", i, err)
		}
		if !isLayerMediaType(layer.MediaType) {
			return fmt.Errorf("layer %d descriptor: mediaType %q is not a layer type", i, layer.MediaType)
		}
	}
	return nil
}

// ValidateDescriptor checks mediaType presence, digest format and size range.
func ValidateDescriptor(d v1.Descriptor) error {
	if d.MediaType == "" {
		return fmt.Errorf("missing mediaType")
	}
	if err := Digest(d).Validate(); err != nil {
		return fmt.Errorf("digest %q: %w", d.Digest.String(), err)
	}
	if d.Size < 0 {
		return fmt.Errorf("negative size %d", d.Size)
	}
	return nil
}

// Digest converts a descriptor's hash to an algorithm-prefixed digest.
func Digest(d v1.Descriptor) digest.Digest {
	return digest.NewDigestFromEncoded(digest.Algorithm(d.Digest.Algorithm), d.Digest.Hex)
}

func isManifestMediaType(mt types.MediaType) bool {
	switch mt {
	case types.OCIManifestSchema1, types.DockerManifestSchema2:
		return true
	}
	return false
}

func isConfigMediaType(mt types.MediaType) bool {
	switch mt {
	case types.OCIConfigJSON, types.DockerConfigJSON:
		return true
	}
	return false
}

func isLayerMediaType(mt types.MediaType) bool {
	switch mt {
	case types.OCILayer,
		types.OCILayerZStd,
		types.OCIRestrictedLayer,
		types.OCIUncompressedLayer,
		types.OCIUncompressedRestrictedLayer,
		types.DockerLayer,
		types.DockerForeignLayer,
		types.DockerUncompressedLayer:
		return true
	}
	return false
}
