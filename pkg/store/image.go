package store

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/containerlabs/layerkit/pkg/manifest"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/partial"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"github.com/opencontainers/go-digest"
	"go.uber.org/zap"
)

// SaveImage writes manifest, config and all layers of an image into the
// store and tags the manifest digest with ref.
func (s *Store) SaveImage(ref string, img v1.Image) (v1.Hash, error) {
	nohash := v1.Hash{}

	raw, err := img.RawManifest()
	if err != nil {
		return nohash, fmt.Errorf("raw manifest: %w", err)
	}
	m, err := manifest.Parse(raw)
	if err != nil {
		return nohash, fmt.Errorf("manifest of %s: %w", ref, err)
	}

	rawConfig, err := img.RawConfigFile()
	if err != nil {
		return nohash, fmt.Errorf("raw config: %w", err)
	}
	if _, err := s.Put(manifest.Digest(m.Config), bytes.NewReader(rawConfig)); err != nil {
		return nohash, fmt.Errorf("store config: %w", err)
	}

	imgLayers, err := img.Layers()
	if err != nil {
		return nohash, fmt.Errorf("layers: %w", err)
	}
	for i, layer := range imgLayers {
		if err := s.saveLayer(layer); err != nil {
			return nohash, fmt.Errorf("store layer %d: %w", i, err)
		}
	}

	imgDigest, err := img.Digest()
	if err != nil {
		return nohash, fmt.Errorf("image digest: %w", err)
	}
	if _, err := s.Put(hashDigest(imgDigest), bytes.NewReader(raw)); err != nil {
		return nohash, fmt.Errorf("store manifest: %w", err)
	}
	if err := s.Tag(ref, hashDigest(imgDigest)); err != nil {
		return nohash, err
	}
	zap.L().Info("image saved",
		zap.String("ref", ref),
		zap.String("digest", imgDigest.String()),
		zap.Int("layers", len(imgLayers)),
	)
	return imgDigest, nil
}

func (s *Store) saveLayer(layer v1.Layer) error {
	h, err := layer.Digest()
	if err != nil {
		return err
	}
	if _, err := s.Stat(hashDigest(h)); err == nil {
		zap.L().Debug("layer blob exists", zap.String("digest", h.String()))
		return nil
	}
	r, err := layer.Compressed()
	if err != nil {
		return err
	}
	defer r.Close()
	_, err = s.Put(hashDigest(h), r)
	return err
}

// LoadImage reads an image back from the store by tag ref or digest.
// Layers are lazy, verification happens on read through Verify or
// manifest.VerifyContent.
func (s *Store) LoadImage(ref string) (v1.Image, error) {
	dgst, err := s.resolveAny(ref)
	if err != nil {
		return nil, err
	}
	raw, err := s.GetBytes(dgst)
	if err != nil {
		return nil, fmt.Errorf("load manifest %s: %w", dgst, err)
	}
	m, err := manifest.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", dgst, err)
	}
	return partial.CompressedToImage(&storedImage{
		store:       s,
		manifest:    m,
		rawManifest: raw,
	})
}

// resolveAny accepts a plain digest, a name@digest ref or a name[:tag] ref.
func (s *Store) resolveAny(ref string) (digest.Digest, error) {
	if dgst := digest.Digest(ref); dgst.Validate() == nil {
		return dgst, nil
	}
	if i := strings.Index(ref, "@"); i > 0 {
		dgst := digest.Digest(ref[i+1:])
		if err := dgst.Validate(); err != nil {
			return "", fmt.Errorf("digest in ref %q: %w", ref, err)
		}
		return dgst, nil
	}
	return s.Resolve(ref)
}

// storedImage implements partial.CompressedImageCore over store blobs.
type storedImage struct {
	store       *Store
	manifest    *v1.Manifest
	rawManifest []byte
}

func (i *storedImage) RawManifest() ([]byte, error) {
	return i.rawManifest, nil
}

func (i *storedImage) MediaType() (types.MediaType, error) {
	return i.manifest.MediaType, nil
}

func (i *storedImage) RawConfigFile() ([]byte, error) {
	return i.store.GetBytes(manifest.Digest(i.manifest.Config))
}

func (i *storedImage) LayerByDigest(h v1.Hash) (partial.CompressedLayer, error) {
	for _, desc := range i.manifest.Layers {
		if desc.Digest == h {
			return &storedLayer{store: i.store, desc: desc}, nil
		}
	}
	return nil, fmt.Errorf("layer %s: %w", h.String(), ErrNotFound)
}

// storedLayer implements partial.CompressedLayer over a store blob.
type storedLayer struct {
	store *Store
	desc  v1.Descriptor
}

func (l *storedLayer) Digest() (v1.Hash, error) {
	return l.desc.Digest, nil
}

func (l *storedLayer) Compressed() (io.ReadCloser, error) {
	return l.store.Get(manifest.Digest(l.desc))
}

func (l *storedLayer) Size() (int64, error) {
	return l.desc.Size, nil
}

func (l *storedLayer) MediaType() (types.MediaType, error) {
	return l.desc.MediaType, nil
}

func hashDigest(h v1.Hash) digest.Digest {
	return digest.NewDigestFromEncoded(digest.Algorithm(h.Algorithm), h.Hex)
}
