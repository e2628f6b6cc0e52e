package store_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/containerlabs/layerkit/pkg/store"
	. "github.com/onsi/gomega"
	"github.com/opencontainers/go-digest"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func newTestStore() *store.Store {
	return store.New(afero.NewMemMapFs())
}

func testLogger(t *testing.T) func() {
	logger := zaptest.NewLogger(t)
	undo := zap.ReplaceGlobals(logger)
	return func() {
		undo()
		logger.Sync()
	}
}

func TestPutGetRoundtrip(t *testing.T) {
	RegisterTestingT(t)
	defer testLogger(t)()

	s := newTestStore()
	content := []byte("blob content")
	expected := digest.FromBytes(content)

	dgst, err := s.Put(expected, bytes.NewReader(content))
	Expect(err).NotTo(HaveOccurred())
	Expect(dgst).To(Equal(expected))

	got, err := s.GetBytes(dgst)
	Expect(err).NotTo(HaveOccurred())
	Expect(got).To(Equal(content))

	size, err := s.Stat(dgst)
	Expect(err).NotTo(HaveOccurred())
	Expect(size).To(Equal(int64(len(content))))
}

func TestPutUnexpectedDigest(t *testing.T) {
	RegisterTestingT(t)
	defer testLogger(t)()

	s := newTestStore()
	wrong := digest.FromString("something else")

	_, err := s.Put(wrong, strings.NewReader("blob content"))
	Expect(err).To(HaveOccurred())

	// mismatch must not leave a blob behind
	_, err = s.Stat(wrong)
	Expect(err).To(MatchError(store.ErrNotFound))
}

func TestPutComputesDigest(t *testing.T) {
	RegisterTestingT(t)
	defer testLogger(t)()

	s := newTestStore()
	content := []byte("anonymous blob")
	dgst, err := s.Put("", bytes.NewReader(content))
	Expect(err).NotTo(HaveOccurred())
	Expect(dgst).To(Equal(digest.FromBytes(content)))
}

func TestGetMissing(t *testing.T) {
	RegisterTestingT(t)
	defer testLogger(t)()

	s := newTestStore()
	_, err := s.Get(digest.FromString("never stored"))
	Expect(err).To(MatchError(store.ErrNotFound))
}

func TestTagResolve(t *testing.T) {
	RegisterTestingT(t)
	defer testLogger(t)()

	s := newTestStore()
	content := []byte("a manifest")
	dgst, err := s.Put("", bytes.NewReader(content))
	Expect(err).NotTo(HaveOccurred())

	Expect(s.Tag("example.net/demo/echo:v1", dgst)).To(Succeed())

	resolved, err := s.Resolve("example.net/demo/echo:v1")
	Expect(err).NotTo(HaveOccurred())
	Expect(resolved).To(Equal(dgst))

	_, err = s.Resolve("example.net/demo/echo:v2")
	Expect(err).To(MatchError(store.ErrNotFound))
}

func TestTagRequiresBlob(t *testing.T) {
	RegisterTestingT(t)
	defer testLogger(t)()

	s := newTestStore()
	err := s.Tag("example.net/demo/echo:v1", digest.FromString("never stored"))
	Expect(err).To(HaveOccurred())
}

func TestDigestsIteration(t *testing.T) {
	RegisterTestingT(t)
	defer testLogger(t)()

	s := newTestStore()
	first, err := s.Put("", strings.NewReader("one"))
	Expect(err).NotTo(HaveOccurred())
	second, err := s.Put("", strings.NewReader("two"))
	Expect(err).NotTo(HaveOccurred())

	seen := map[digest.Digest]bool{}
	Expect(s.Digests(func(d digest.Digest) error {
		seen[d] = true
		return nil
	})).To(Succeed())
	Expect(seen).To(HaveLen(2))
	Expect(seen[first]).To(BeTrue())
	Expect(seen[second]).To(BeTrue())
}

func TestDelete(t *testing.T) {
	RegisterTestingT(t)
	defer testLogger(t)()

	s := newTestStore()
	dgst, err := s.Put("", strings.NewReader("temporary"))
	Expect(err).NotTo(HaveOccurred())
	Expect(s.Delete(dgst)).To(Succeed())
	_, err = s.Stat(dgst)
	Expect(err).To(MatchError(store.ErrNotFound))
}

func TestVerifyDetectsCorruption(t *testing.T) {
	RegisterTestingT(t)
	defer testLogger(t)()

	fs := afero.NewMemMapFs()
	s := store.New(fs)
	dgst, err := s.Put("", strings.NewReader("pristine"))
	Expect(err).NotTo(HaveOccurred())

	result, err := s.Verify()
	Expect(err).NotTo(HaveOccurred())
	Expect(result.Ok()).To(BeTrue())
	Expect(result.Checked).To(Equal(1))

	// overwrite the data file behind the store's back
	path := store.DefaultLayout.BlobDataPath(dgst)
	Expect(afero.WriteFile(fs, path, []byte("tampered"), 0644)).To(Succeed())

	result, err = s.Verify()
	Expect(err).NotTo(HaveOccurred())
	Expect(result.Ok()).To(BeFalse())
	Expect(result.Corrupt).To(ConsistOf(dgst))
}
