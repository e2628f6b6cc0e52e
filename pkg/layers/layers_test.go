package layers_test

import (
	"archive/tar"
	"io"
	"testing"

	"github.com/containerlabs/layerkit/pkg/layers"
	schema "github.com/containerlabs/layerkit/pkg/schema/v1"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestLayerBuilderRequiresExactlyOneType(t *testing.T) {
	RegisterTestingT(t)

	_, err := layers.NewLayerBuilder(schema.Layer{})
	Expect(err).To(HaveOccurred())

	_, err = layers.NewLayerBuilder(schema.Layer{
		LocalDir:  schema.LocalDir{Path: "./testdata/app"},
		LocalFile: schema.LocalFile{Path: "./testdata/app/VERSION"},
	})
	Expect(err).To(HaveOccurred())
	Expect(err.Error()).To(ContainSubstring("exactly one"))
}

func TestBuildDirLayer(t *testing.T) {
	RegisterTestingT(t)
	logger := zaptest.NewLogger(t)
	defer logger.Sync()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	result, err := layers.Build([]schema.Layer{
		{
			LocalDir: schema.LocalDir{
				Path:          "./testdata/app",
				ContainerPath: "/app",
			},
		},
	})
	Expect(err).NotTo(HaveOccurred())
	Expect(result).To(HaveLen(1))

	paths := tarPaths(t, result[0])
	Expect(paths).To(ContainElement("/app/run.sh"))
	Expect(paths).To(ContainElement("/app/VERSION"))
}

func TestBuildFileLayer(t *testing.T) {
	RegisterTestingT(t)
	logger := zaptest.NewLogger(t)
	defer logger.Sync()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	result, err := layers.Build([]schema.Layer{
		{
			LocalFile: schema.LocalFile{
				Path:          "./testdata/app/run.sh",
				ContainerPath: "/bin",
			},
		},
	})
	Expect(err).NotTo(HaveOccurred())
	Expect(result).To(HaveLen(1))
	Expect(tarPaths(t, result[0])).To(ContainElement("/bin/run.sh"))
}

func TestBuildPreservesLayerOrder(t *testing.T) {
	RegisterTestingT(t)
	logger := zaptest.NewLogger(t)
	defer logger.Sync()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	result, err := layers.Build([]schema.Layer{
		{LocalFile: schema.LocalFile{Path: "./testdata/app/VERSION", ContainerPath: "/meta"}},
		{LocalDir: schema.LocalDir{Path: "./testdata/app", ContainerPath: "/app"}},
	})
	Expect(err).NotTo(HaveOccurred())
	Expect(result).To(HaveLen(2))
	Expect(tarPaths(t, result[0])).To(ContainElement("/meta/VERSION"))
	Expect(tarPaths(t, result[1])).To(ContainElement("/app/run.sh"))
}

func TestBuildIgnore(t *testing.T) {
	RegisterTestingT(t)
	logger := zaptest.NewLogger(t)
	defer logger.Sync()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	result, err := layers.Build([]schema.Layer{
		{
			LocalDir: schema.LocalDir{
				Path:          "./testdata/app",
				ContainerPath: "/app",
				Ignore:        []string{"VERSION"},
			},
		},
	})
	Expect(err).NotTo(HaveOccurred())

	paths := tarPaths(t, result[0])
	Expect(paths).To(ContainElement("/app/run.sh"))
	Expect(paths).NotTo(ContainElement("/app/VERSION"))
}

func TestBuildMaxFilesExceeded(t *testing.T) {
	RegisterTestingT(t)
	logger := zaptest.NewLogger(t)
	defer logger.Sync()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	_, err := layers.Build([]schema.Layer{
		{
			LocalDir: schema.LocalDir{
				Path:     "./testdata/app",
				MaxFiles: 1,
			},
		},
	})
	Expect(err).To(HaveOccurred())
}

func tarPaths(t *testing.T, layer interface {
	Uncompressed() (io.ReadCloser, error)
}) []string {
	t.Helper()
	rc, err := layer.Uncompressed()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	var paths []string
	tr := tar.NewReader(rc)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		paths = append(paths, header.Name)
	}
	return paths
}
