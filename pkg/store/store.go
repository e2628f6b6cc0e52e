// Package store is a content-addressed local image store.
//
// Blobs are committed under their digest only after the streamed content
// has been verified against it, so anything readable from the store is
// known to match its address.
package store

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/distribution/reference"
	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type Store struct {
	fs     afero.Fs
	layout Layout
}

// New creates a store on the given filesystem, typically a BasePathFs
// rooted at the store directory.
func New(fs afero.Fs) *Store {
	return &Store{
		fs:     fs,
		layout: DefaultLayout,
	}
}

// NewAtDir creates a store backed by the OS filesystem at root.
func NewAtDir(root string) *Store {
	return New(afero.NewBasePathFs(afero.NewOsFs(), root))
}

// Put streams content into the store. When expected is non-empty the
// content must hash to it, otherwise the computed digest addresses the
// blob. The blob becomes visible only on digest match.
func (s *Store) Put(expected digest.Digest, r io.Reader) (digest.Digest, error) {
	if expected != "" {
		if err := expected.Validate(); err != nil {
			return "", fmt.Errorf("expected digest %q: %w", expected, err)
		}
	}

	stagePath := s.layout.UploadDataPath(uuid.New().String())
	if err := s.fs.MkdirAll(path.Dir(stagePath), 0755); err != nil {
		return "", err
	}
	stage, err := s.fs.OpenFile(stagePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", err
	}

	algorithm := digest.Canonical
	if expected != "" {
		algorithm = expected.Algorithm()
	}
	digester := algorithm.Digester()
	size, err := io.Copy(io.MultiWriter(stage, digester.Hash()), r)
	closeErr := stage.Close()
	if err != nil {
		s.discard(stagePath)
		return "", fmt.Errorf("stage blob: %w", err)
	}
	if closeErr != nil {
		s.discard(stagePath)
		return "", closeErr
	}

	dgst := digester.Digest()
	if expected != "" && dgst != expected {
		s.discard(stagePath)
		return "", fmt.Errorf("content digest %s does not match expected %s", dgst, expected)
	}

	blobPath := s.layout.BlobDataPath(dgst)
	if err := s.fs.MkdirAll(path.Dir(blobPath), 0755); err != nil {
		s.discard(stagePath)
		return "", err
	}
	if err := s.fs.Rename(stagePath, blobPath); err != nil {
		s.discard(stagePath)
		return "", fmt.Errorf("commit blob %s: %w", dgst, err)
	}
	s.discard(path.Dir(stagePath))
	zap.L().Debug("blob committed", zap.String("digest", dgst.String()), zap.Int64("size", size))
	return dgst, nil
}

// Get opens a blob for reading.
func (s *Store) Get(dgst digest.Digest) (io.ReadCloser, error) {
	if err := dgst.Validate(); err != nil {
		return nil, fmt.Errorf("digest %q: %w", dgst, err)
	}
	f, err := s.fs.Open(s.layout.BlobDataPath(dgst))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob %s: %w", dgst, ErrNotFound)
		}
		return nil, err
	}
	return f, nil
}

// GetBytes reads a whole blob, for manifests and configs.
func (s *Store) GetBytes(dgst digest.Digest) ([]byte, error) {
	r, err := s.Get(dgst)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Stat returns the size of a blob.
func (s *Store) Stat(dgst digest.Digest) (int64, error) {
	if err := dgst.Validate(); err != nil {
		return 0, fmt.Errorf("digest %q: %w", dgst, err)
	}
	info, err := s.fs.Stat(s.layout.BlobDataPath(dgst))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("blob %s: %w", dgst, ErrNotFound)
		}
		return 0, err
	}
	return info.Size(), nil
}

// Delete removes a blob. Tags linking to it are not touched.
func (s *Store) Delete(dgst digest.Digest) error {
	if err := dgst.Validate(); err != nil {
		return fmt.Errorf("digest %q: %w", dgst, err)
	}
	return s.fs.RemoveAll(path.Dir(s.layout.BlobDataPath(dgst)))
}

// Digests walks the blob tree and calls fn for each stored digest.
func (s *Store) Digests(fn func(digest.Digest) error) error {
	blobs := s.layout.BlobsPath()
	exists, err := afero.DirExists(s.fs, blobs)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return afero.Walk(s.fs, blobs, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || path.Base(p) != "data" {
			return nil
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, blobs), "/")
		parts := strings.Split(rel, "/")
		// {algorithm}/{prefix}/{hex}/data
		if len(parts) != 4 {
			return fmt.Errorf("unexpected blob path: %s", p)
		}
		dgst := digest.NewDigestFromHex(parts[0], parts[2])
		if err := dgst.Validate(); err != nil {
			return fmt.Errorf("invalid digest at %s: %w", p, err)
		}
		return fn(dgst)
	})
}

// Tag links a name:tag to a manifest digest.
func (s *Store) Tag(ref string, dgst digest.Digest) error {
	named, tag, err := parseTagRef(ref)
	if err != nil {
		return err
	}
	if _, err := s.Stat(dgst); err != nil {
		return fmt.Errorf("tag %s: %w", ref, err)
	}
	linkPath := s.layout.TagLinkPath(named, tag)
	if err := s.fs.MkdirAll(path.Dir(linkPath), 0755); err != nil {
		return err
	}
	return afero.WriteFile(s.fs, linkPath, []byte(dgst.String()), 0644)
}

// Resolve returns the manifest digest a name:tag links to.
func (s *Store) Resolve(ref string) (digest.Digest, error) {
	named, tag, err := parseTagRef(ref)
	if err != nil {
		return "", err
	}
	buf, err := afero.ReadFile(s.fs, s.layout.TagLinkPath(named, tag))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("ref %s: %w", ref, ErrNotFound)
		}
		return "", err
	}
	dgst := digest.Digest(strings.TrimSpace(string(buf)))
	if err := dgst.Validate(); err != nil {
		return "", fmt.Errorf("ref %s link: %w", ref, err)
	}
	return dgst, nil
}

func parseTagRef(ref string) (reference.Named, string, error) {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return nil, "", fmt.Errorf("parse ref %q: %w", ref, err)
	}
	tag := "latest"
	if tagged, ok := named.(reference.Tagged); ok {
		tag = tagged.Tag()
	}
	return named, tag, nil
}

func (s *Store) discard(p string) {
	if err := s.fs.RemoveAll(p); err != nil {
		zap.L().Warn("discard staging path", zap.String("path", p), zap.Error(err))
	}
}
