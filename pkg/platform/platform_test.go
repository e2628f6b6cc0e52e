package platform_test

import (
	"testing"

	"github.com/containerlabs/layerkit/pkg/platform"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/types"
	. "github.com/onsi/gomega"
)

// testIndexManifest resembles a buildkit multi-platform push:
// two image manifests plus their attestations on unknown/unknown.
func testIndexManifest() *v1.IndexManifest {
	return &v1.IndexManifest{
		SchemaVersion: 2,
		MediaType:     types.OCIImageIndex,
		Manifests: []v1.Descriptor{
			{
				MediaType: types.OCIManifestSchema1,
				Digest:    v1.Hash{Algorithm: "sha256", Hex: "1111111111111111111111111111111111111111111111111111111111111111"},
				Size:      100,
				Platform:  &v1.Platform{OS: "linux", Architecture: "amd64"},
			},
			{
				MediaType: types.OCIManifestSchema1,
				Digest:    v1.Hash{Algorithm: "sha256", Hex: "2222222222222222222222222222222222222222222222222222222222222222"},
				Size:      100,
				Platform:  &v1.Platform{OS: "linux", Architecture: "arm64", Variant: "v8"},
			},
			{
				MediaType: types.OCIManifestSchema1,
				Digest:    v1.Hash{Algorithm: "sha256", Hex: "3333333333333333333333333333333333333333333333333333333333333333"},
				Size:      100,
				Platform:  &v1.Platform{OS: "unknown", Architecture: "unknown"},
				Annotations: map[string]string{
					platform.ReferenceTypeAnnotation: platform.ReferenceTypeAttestation,
				},
			},
		},
	}
}

func TestParse(t *testing.T) {
	RegisterTestingT(t)

	platforms, err := platform.Parse([]string{"linux/amd64", "linux/arm64/v8"})
	Expect(err).NotTo(HaveOccurred())
	Expect(platforms).To(HaveLen(2))
	Expect(platforms[0].OS).To(Equal("linux"))
	Expect(platforms[0].Architecture).To(Equal("amd64"))
	Expect(platforms[1].Variant).To(Equal("v8"))

	platforms, err = platform.Parse(nil)
	Expect(err).NotTo(HaveOccurred())
	Expect(platforms).To(BeNil())
}

func TestStrings(t *testing.T) {
	RegisterTestingT(t)

	Expect(platform.Strings(nil)).To(BeNil())
	Expect(platform.Strings([]v1.Platform{
		{OS: "linux", Architecture: "amd64"},
		{OS: "linux", Architecture: "arm64", Variant: "v8"},
	})).To(Equal([]string{"linux/amd64", "linux/arm64/v8"}))
}

func TestNewMatcherEmptyMatchesAll(t *testing.T) {
	RegisterTestingT(t)

	matcher, err := platform.NewMatcher(nil)
	Expect(err).NotTo(HaveOccurred())
	Expect(matcher(v1.Descriptor{})).To(BeTrue())
	Expect(matcher(v1.Descriptor{Platform: &v1.Platform{OS: "linux", Architecture: "s390x"}})).To(BeTrue())
}

func TestNewMatcher(t *testing.T) {
	RegisterTestingT(t)

	matcher, err := platform.NewMatcher([]string{"linux/amd64"})
	Expect(err).NotTo(HaveOccurred())
	Expect(matcher(v1.Descriptor{Platform: &v1.Platform{OS: "linux", Architecture: "amd64"}})).To(BeTrue())
	Expect(matcher(v1.Descriptor{Platform: &v1.Platform{OS: "linux", Architecture: "arm64"}})).To(BeFalse())

	_, err = platform.NewMatcher([]string{"linux/amd64/v8/bogus/extra"})
	Expect(err).To(HaveOccurred())
}

func TestFromIndexManifestSkipsAttestations(t *testing.T) {
	RegisterTestingT(t)

	platforms := platform.FromIndexManifest(testIndexManifest())
	Expect(platform.Strings(platforms)).To(Equal([]string{"linux/amd64", "linux/arm64/v8"}))
}

func TestSelectManifest(t *testing.T) {
	RegisterTestingT(t)
	idxm := testIndexManifest()

	d, err := platform.SelectManifest(idxm, v1.Platform{OS: "linux", Architecture: "arm64", Variant: "v8"})
	Expect(err).NotTo(HaveOccurred())
	Expect(d.Digest.Hex).To(HavePrefix("2222"))

	_, err = platform.SelectManifest(idxm, v1.Platform{OS: "linux", Architecture: "riscv64"})
	Expect(err).To(HaveOccurred())
	Expect(err.Error()).To(ContainSubstring("linux/riscv64"))
}
