package pushed

import (
	"fmt"

	"github.com/containerlabs/layerkit/pkg/platform"
	"github.com/distribution/reference"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"go.uber.org/zap"
)

// Artifact represents what we need to know (without manifest fetch) about the result of build+push
type Artifact struct {
	// Name without tag or digest used to reference the artifact in deployment resources
	ImageName string `json:"imageName"`
	// TagRef includes name and digest, i.e. the config Tag pushed to
	TagRef string `json:"tag"`
	// MediaType is not part of skaffold's build output format
	MediaType types.MediaType `json:"mediaType"`
	// Platforms is not part of skaffold's build output format either,
	// but neither skaffold nor buildctl output has a place for it
	Platforms []string `json:"platforms,omitempty"`
	// BaseRef is the configured base image reference as provided (may include @sha256:digest)
	BaseRef string `json:"base,omitempty"`
	// reference is kept internally for reuse
	reference name.Reference
	hash      v1.Hash
	// configHash is optional and can't be reconstructed from JSON
	configHash v1.Hash
}

type ArtifactHttp struct {
	// Host is the registry host without protocol but with port
	Host string
	// Repository is the path part of the image, excluding the /v2 http api prefix
	Repository string
	// Tag is the tag name or "latest" if not specified
	Tag string
	// Hash is the digest, with algorithm and hex separable
	Hash v1.Hash
}

func (a *Artifact) Reference() name.Reference {
	return a.reference
}

func (a *Artifact) Hash() v1.Hash {
	return a.hash
}

func (a *Artifact) Http() ArtifactHttp {
	return ArtifactHttp{
		Host:       a.reference.Context().RegistryStr(),
		Repository: a.reference.Context().RepositoryStr(),
		Tag:        a.reference.Identifier(),
		Hash:       a.hash,
	}
}

// ConfigDigest returns the image config digest, or empty if unknown.
func (a *Artifact) ConfigDigest() string {
	if a.configHash.Hex == "" {
		return ""
	}
	return a.configHash.String()
}

func newRef(tagRef string, hash v1.Hash) (*Artifact, error) {
	full := fmt.Sprintf("%s@%v", tagRef, hash)

	ref, err := reference.Parse(full)
	if err != nil {
		zap.L().Error("parse", zap.String("ref", full), zap.Error(err))
		return nil, err
	}
	named, ok := ref.(reference.Named)
	if !ok {
		return nil, fmt.Errorf("ref %s is not a named reference", ref.String())
	}

	// name.ParseReference keeps the ref as given, reference.Parse would
	// prepend the default registry which skaffold doesn't do
	r, err := name.ParseReference(tagRef)
	if err != nil {
		zap.L().Error("parse", zap.String("ref", tagRef))
		return nil, err
	}

	return &Artifact{
		TagRef:    ref.String(),
		ImageName: named.Name(),
		reference: r,
		hash:      hash,
	}, nil
}

// NewSingleImage should be called for a pushed image that has no index manifest
func NewSingleImage(tagRef string, digest v1.Hash, image v1.Image, baseRef string) (*Artifact, error) {
	a, err := newRef(tagRef, digest)
	if err != nil {
		return nil, err
	}

	configHash, err := image.ConfigName()
	if err != nil {
		zap.L().Warn("failed to get config digest", zap.Error(err))
	}
	a.configHash = configHash

	m, err := image.Manifest()
	if err != nil {
		zap.L().Warn("failed to get manifest", zap.Error(err))
		return a, nil
	}
	a.MediaType = m.MediaType

	cf, err := image.ConfigFile()
	if err == nil && cf.OS != "" {
		a.Platforms = platform.Strings([]v1.Platform{*cf.Platform()})
	}
	a.BaseRef = baseRef

	return a, nil
}

// NewIndexImage should be called for a pushed ref that is an index
// even if the index contains only a single platform
func NewIndexImage(tagRef string, digest v1.Hash, index v1.ImageIndex, baseRef string) (*Artifact, error) {
	a, err := newRef(tagRef, digest)
	if err != nil {
		return nil, err
	}
	idxm, err := index.IndexManifest()
	if err != nil {
		zap.L().Warn("failed to get index manifest", zap.Error(err))
		return a, nil
	}
	a.MediaType = idxm.MediaType
	a.Platforms = platform.Strings(platform.FromIndexManifest(idxm))
	a.BaseRef = baseRef
	return a, nil
}
