package image

import (
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	specsv1 "github.com/opencontainers/image-spec/specs-go/v1"
)

// annotateBase records the base image in standard OCI annotations,
// https://github.com/google/go-containerregistry/blob/v0.13.0/cmd/crane/cmd/append.go#L71
func annotateBase(image v1.Image, baseRef name.Reference, baseDigest v1.Hash) v1.Image {
	a := map[string]string{
		specsv1.AnnotationBaseImageDigest: baseDigest.String(),
	}
	if _, ok := baseRef.(name.Tag); ok {
		a[specsv1.AnnotationBaseImageName] = baseRef.Name()
	}
	return mutate.Annotations(image, a).(v1.Image)
}
