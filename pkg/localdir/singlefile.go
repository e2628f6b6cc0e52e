package localdir

import (
	"fmt"
	"os"
	"path/filepath"

	schema "github.com/containerlabs/layerkit/pkg/schema/v1"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"go.uber.org/zap"
)

type File struct {
	Path          string
	ContainerPath PathMapper
	MaxSize       int
}

// FromFile buffers a single file into a layer.
func FromFile(file File, attributes schema.LayerAttributes) (v1.Layer, error) {
	if file.Path == "" {
		return nil, fmt.Errorf("localFile path must be specified")
	}
	if file.ContainerPath == nil {
		file.ContainerPath = NewPathMapperAsIs()
	}
	info, err := os.Stat(file.Path)
	if err != nil {
		return nil, fmt.Errorf("localFile %s: %w", file.Path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("localFile %s is a directory, use localDir", file.Path)
	}
	if file.MaxSize > 0 && info.Size() > int64(file.MaxSize) {
		return nil, fmt.Errorf("file size %d exceeds max size from layer config: %d", info.Size(), file.MaxSize)
	}
	buf, err := os.ReadFile(file.Path)
	if err != nil {
		return nil, err
	}

	topath := file.ContainerPath(filepath.Base(file.Path))
	content := NewContent()
	content.Files[topath] = buf
	content.Modes[topath] = int64(info.Mode().Perm())
	zap.L().Debug("added",
		zap.String("from", file.Path),
		zap.String("to", topath),
		zap.Int64("size", info.Size()),
	)

	return Layer(content, attributes)
}
