package pushed

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/go-containerregistry/pkg/v1/types"
)

// BuildOutput is used to produce a similar output file that Skaffold does
type BuildOutput struct {
	// Skaffold is a superset of skaffold's --file-output format and can be used for skaffold deploy
	Skaffold *BuildOutputSkaffoldSuperset `json:"skaffold,omitempty"`
	// Buildctl matches buildctl's --metadata-file format
	Buildctl *MetadataSimilarToBuildctlFile `json:"buildctl,omitempty"`
	// Trace is internal metadata such as start/end and env; optional
	Trace *BuildTrace `json:"trace,omitempty"`
}

type BuildOutputSkaffoldSuperset struct {
	Builds []Artifact `json:"builds"`
}

// Print writes the tag@digest for each built artifact to stdout consumers.
func (b *BuildOutput) Print(w io.Writer) {
	if b == nil || b.Skaffold == nil {
		return
	}
	for _, a := range b.Skaffold.Builds {
		fmt.Fprintln(w, a.TagRef)
	}
}

// Artifact returns the one artifact we built (the Skaffold format supports >=0)
func (b BuildOutput) Artifact() Artifact { return b.Skaffold.Builds[0] }

// NewBuildOutput constructs BuildOutput from a pushed Artifact.
// Buildctl metadata is populated from available details: config digest
// (if present) and platform only for single-image manifests.
func NewBuildOutput(tag string, a *Artifact) (*BuildOutput, error) {
	if a == nil {
		return nil, fmt.Errorf("artifact is nil")
	}
	s := &BuildOutputSkaffoldSuperset{Builds: []Artifact{*a}}

	md := &MetadataSimilarToBuildctlFile{
		ContainerImageDigest: a.hash.String(),
		ImageName:            tag,
		ContainerImageDescriptor: ContainerImageDescriptor{
			MediaType: string(a.MediaType),
			Digest:    a.hash.String(),
			// Size omitted (unknown without fetching)
		},
	}
	if !isIndexMediaType(a.MediaType) && len(a.Platforms) > 0 {
		parts := strings.Split(a.Platforms[0], "/")
		if len(parts) >= 2 {
			md.ContainerImageDescriptor.Platform = Platform{OS: parts[0], Architecture: parts[1]}
		}
	}
	if a.ConfigDigest() != "" {
		md.ContainerImageConfigDigest = a.ConfigDigest()
	}

	return &BuildOutput{Skaffold: s, Buildctl: md}, nil
}

// isIndexMediaType returns true if the media type denotes an image index/manifest list
func isIndexMediaType(mt types.MediaType) bool {
	switch mt {
	case types.OCIImageIndex, types.DockerManifestList:
		return true
	default:
		return false
	}
}

func (b *BuildOutput) WriteSkaffoldJSON(w io.Writer) error {
	if b.Skaffold == nil {
		b.Skaffold = &BuildOutputSkaffoldSuperset{Builds: []Artifact{}}
	}
	j, err := json.Marshal(b.Skaffold)
	if err != nil {
		return err
	}
	_, err = w.Write(j)
	return err
}

func (b *BuildOutput) WriteBuildctlJSON(w io.Writer) error {
	if b.Buildctl == nil {
		b.Buildctl = &MetadataSimilarToBuildctlFile{}
	}
	j, err := json.Marshal(b.Buildctl)
	if err != nil {
		return err
	}
	_, err = w.Write(j)
	return err
}

func (b *BuildOutput) WriteJSON(w io.Writer) error {
	j, err := json.Marshal(b)
	if err != nil {
		return err
	}
	_, err = w.Write(j)
	return err
}
