package localdir_test

import (
	"testing"

	"github.com/containerlabs/layerkit/pkg/localdir"
	schema "github.com/containerlabs/layerkit/pkg/schema/v1"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func layerDigest(t *testing.T, layer v1.Layer) string {
	t.Helper()
	d, err := layer.Digest()
	if err != nil {
		t.Fatal(err)
	}
	return d.String()
}

func TestFromFilesystemReproducible(t *testing.T) {
	logger := zaptest.NewLogger(t)
	defer logger.Sync()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	first, err := localdir.FromFilesystem(localdir.Dir{
		Path: "./testdata/dir1",
	}, schema.LayerAttributes{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := localdir.FromFilesystem(localdir.Dir{
		Path: "./testdata/dir1",
	}, schema.LayerAttributes{})
	if err != nil {
		t.Fatal(err)
	}
	if layerDigest(t, first) != layerDigest(t, second) {
		t.Errorf("identical input should produce identical digest, got %s and %s",
			layerDigest(t, first), layerDigest(t, second))
	}
}

func TestFromFilesystemContainerPath(t *testing.T) {
	logger := zaptest.NewLogger(t)
	defer logger.Sync()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	asIs, err := localdir.FromFilesystem(localdir.Dir{
		Path: "./testdata/dir1",
	}, schema.LayerAttributes{})
	if err != nil {
		t.Fatal(err)
	}
	prefixed, err := localdir.FromFilesystem(localdir.Dir{
		Path:          "./testdata/dir1",
		ContainerPath: localdir.NewPathMapperPrepend("/app"),
	}, schema.LayerAttributes{})
	if err != nil {
		t.Fatal(err)
	}
	if layerDigest(t, asIs) == layerDigest(t, prefixed) {
		t.Error("path mapping should change the layer digest")
	}
}

func TestFromFilesystemAttributes(t *testing.T) {
	logger := zaptest.NewLogger(t)
	defer logger.Sync()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	plain, err := localdir.FromFilesystem(localdir.Dir{
		Path: "./testdata/dir1",
	}, schema.LayerAttributes{})
	if err != nil {
		t.Fatal(err)
	}
	moded, err := localdir.FromFilesystem(localdir.Dir{
		Path: "./testdata/dir1",
	}, schema.LayerAttributes{FileMode: 0755})
	if err != nil {
		t.Fatal(err)
	}
	if layerDigest(t, plain) == layerDigest(t, moded) {
		t.Error("mode override should change the layer digest")
	}
}

func TestFromFilesystemMaxFiles(t *testing.T) {
	logger := zaptest.NewLogger(t)
	defer logger.Sync()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	_, err := localdir.FromFilesystem(localdir.Dir{
		Path:     "./testdata/dir1",
		MaxFiles: 1,
	}, schema.LayerAttributes{})
	if err == nil {
		t.Error("expected maxFiles limit to fail the layer")
	}
}

func TestFileMapDeterministic(t *testing.T) {
	logger := zaptest.NewLogger(t)
	defer logger.Sync()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	files := map[string][]byte{
		"/app/a.txt": []byte("a"),
		"/app/b.txt": []byte("b"),
	}
	first, err := localdir.FileMap(files, schema.LayerAttributes{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := localdir.FileMap(files, schema.LayerAttributes{})
	if err != nil {
		t.Fatal(err)
	}
	if layerDigest(t, first) != layerDigest(t, second) {
		t.Error("filemap layers should be deterministic")
	}
}
