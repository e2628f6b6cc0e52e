package store_test

import (
	"testing"

	"github.com/containerlabs/layerkit/pkg/localdir"
	schema "github.com/containerlabs/layerkit/pkg/schema/v1"
	"github.com/containerlabs/layerkit/pkg/store"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/types"
	. "github.com/onsi/gomega"
)

func testImage(t *testing.T, filemaps ...map[string][]byte) v1.Image {
	t.Helper()
	img := empty.Image
	img = mutate.MediaType(img, types.OCIManifestSchema1)
	img = mutate.ConfigMediaType(img, types.OCIConfigJSON)
	for _, files := range filemaps {
		layer, err := localdir.FileMap(files, schema.LayerAttributes{})
		if err != nil {
			t.Fatal(err)
		}
		img, err = mutate.AppendLayers(img, layer)
		if err != nil {
			t.Fatal(err)
		}
	}
	return img
}

func TestSaveLoadRoundtrip(t *testing.T) {
	RegisterTestingT(t)
	defer testLogger(t)()

	img := testImage(t,
		map[string][]byte{"/app/a.txt": []byte("first layer")},
		map[string][]byte{"/app/b.txt": []byte("second layer")},
	)
	wantDigest, err := img.Digest()
	Expect(err).NotTo(HaveOccurred())
	wantManifest, err := img.Manifest()
	Expect(err).NotTo(HaveOccurred())

	s := newTestStore()
	saved, err := s.SaveImage("example.net/demo/echo:v1", img)
	Expect(err).NotTo(HaveOccurred())
	Expect(saved).To(Equal(wantDigest))

	loaded, err := s.LoadImage("example.net/demo/echo:v1")
	Expect(err).NotTo(HaveOccurred())

	gotDigest, err := loaded.Digest()
	Expect(err).NotTo(HaveOccurred())
	Expect(gotDigest).To(Equal(wantDigest))

	gotManifest, err := loaded.Manifest()
	Expect(err).NotTo(HaveOccurred())
	Expect(gotManifest.Layers).To(HaveLen(2))
	// layer order survives the roundtrip
	for i := range wantManifest.Layers {
		Expect(gotManifest.Layers[i].Digest).To(Equal(wantManifest.Layers[i].Digest))
	}

	layers, err := loaded.Layers()
	Expect(err).NotTo(HaveOccurred())
	Expect(layers).To(HaveLen(2))
	for _, layer := range layers {
		_, err := layer.Compressed()
		Expect(err).NotTo(HaveOccurred())
	}
}

func TestLoadImageByDigest(t *testing.T) {
	RegisterTestingT(t)
	defer testLogger(t)()

	img := testImage(t, map[string][]byte{"/f": []byte("content")})
	s := newTestStore()
	saved, err := s.SaveImage("example.net/demo/echo:v1", img)
	Expect(err).NotTo(HaveOccurred())

	loaded, err := s.LoadImage(saved.String())
	Expect(err).NotTo(HaveOccurred())
	gotDigest, err := loaded.Digest()
	Expect(err).NotTo(HaveOccurred())
	Expect(gotDigest).To(Equal(saved))

	byRef, err := s.LoadImage("example.net/demo/echo@" + saved.String())
	Expect(err).NotTo(HaveOccurred())
	gotDigest, err = byRef.Digest()
	Expect(err).NotTo(HaveOccurred())
	Expect(gotDigest).To(Equal(saved))
}

func TestLoadImageMissingRef(t *testing.T) {
	RegisterTestingT(t)
	defer testLogger(t)()

	s := newTestStore()
	_, err := s.LoadImage("example.net/demo/absent:v1")
	Expect(err).To(MatchError(store.ErrNotFound))
}
