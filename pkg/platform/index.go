package platform

import (
	"fmt"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/types"
)

const (
	// AttestationPlatform is how buildkit marks attestation manifests in an index
	AttestationPlatform      = "unknown/unknown"
	ReferenceTypeAnnotation  = "vnd.docker.reference.type"
	ReferenceTypeAttestation = "attestation-manifest"
)

// FromIndexManifest returns the platforms present in an index manifest.
// It includes only image manifests with a defined platform, skips
// attestations and non-image entries.
func FromIndexManifest(idxm *v1.IndexManifest) []v1.Platform {
	platforms := make([]v1.Platform, 0, len(idxm.Manifests))
	for _, d := range idxm.Manifests {
		if !imagePlatformDescriptor(d) {
			continue
		}
		platforms = append(platforms, *d.Platform)
	}
	return platforms
}

// SelectManifest returns the index entry matching the requested platform.
func SelectManifest(idxm *v1.IndexManifest, requested v1.Platform) (*v1.Descriptor, error) {
	for _, d := range idxm.Manifests {
		if !imagePlatformDescriptor(d) {
			continue
		}
		if d.Platform.Satisfies(requested) {
			found := d
			return &found, nil
		}
	}
	return nil, fmt.Errorf("no manifest for platform %s among %v", requested.String(), Strings(FromIndexManifest(idxm)))
}

func imagePlatformDescriptor(d v1.Descriptor) bool {
	if d.Platform == nil {
		return false
	}
	if d.MediaType != types.OCIManifestSchema1 && d.MediaType != types.DockerManifestSchema2 {
		return false
	}
	if d.Annotations != nil {
		if d.Platform.String() == AttestationPlatform && d.Annotations[ReferenceTypeAnnotation] == ReferenceTypeAttestation {
			return false
		}
	}
	return true
}
