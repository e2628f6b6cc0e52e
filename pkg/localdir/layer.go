package localdir

import (
	"archive/tar"
	"bytes"
	"io"
	"sort"

	schema "github.com/containerlabs/layerkit/pkg/schema/v1"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/tarball"
)

const (
	defaultFileMode = int64(0644)
	defaultDirMode  = int64(0755)
)

// Content is buffered layer input.
// Files maps container path to file content, or to symlink target for
// paths present in Symlinks. Dirs are created with their own tar entries
// so permissions survive extraction. Modes holds filesystem modes used
// when attributes don't override them.
type Content struct {
	Files    map[string][]byte
	Dirs     map[string]bool
	Symlinks map[string]bool
	Modes    map[string]int64
}

func NewContent() Content {
	return Content{
		Files:    make(map[string][]byte),
		Dirs:     make(map[string]bool),
		Symlinks: make(map[string]bool),
		Modes:    make(map[string]int64),
	}
}

// FileMap is the minimal layer input: paths to regular file contents.
func FileMap(files map[string][]byte, attributes schema.LayerAttributes) (v1.Layer, error) {
	c := NewContent()
	for path, content := range files {
		c.Files[path] = content
	}
	return Layer(c, attributes)
}

// Layer creates a layer from buffered content. Entries are written in
// sorted order without timestamps so identical input produces an
// identical digest.
func Layer(content Content, attributes schema.LayerAttributes) (v1.Layer, error) {
	b := &bytes.Buffer{}
	w := tar.NewWriter(b)

	dn := []string{}
	for d := range content.Dirs {
		dn = append(dn, d)
	}
	sort.Strings(dn)

	for _, d := range dn {
		mode := defaultDirMode
		if attributes.DirMode != 0 {
			mode = int64(attributes.DirMode)
		} else if attributes.FileMode != 0 {
			mode = int64(attributes.FileMode)
		} else if originalMode, exists := content.Modes[d]; exists {
			mode = originalMode
		}
		if err := w.WriteHeader(&tar.Header{
			Name:     d,
			Uid:      int(attributes.Uid),
			Gid:      int(attributes.Gid),
			Mode:     mode,
			Typeflag: tar.TypeDir,
		}); err != nil {
			return nil, err
		}
	}

	fn := []string{}
	for f := range content.Files {
		fn = append(fn, f)
	}
	sort.Strings(fn)

	for _, f := range fn {
		c := content.Files[f]
		mode := defaultFileMode
		if attributes.FileMode != 0 {
			mode = int64(attributes.FileMode)
		} else if originalMode, exists := content.Modes[f]; exists {
			mode = originalMode
		}

		if content.Symlinks[f] {
			// content is the link target
			if err := w.WriteHeader(&tar.Header{
				Name:     f,
				Linkname: string(c),
				Uid:      int(attributes.Uid),
				Gid:      int(attributes.Gid),
				Mode:     mode,
				Typeflag: tar.TypeSymlink,
			}); err != nil {
				return nil, err
			}
			continue
		}

		if err := w.WriteHeader(&tar.Header{
			Name:     f,
			Size:     int64(len(c)),
			Uid:      int(attributes.Uid),
			Gid:      int(attributes.Gid),
			Mode:     mode,
			Typeflag: tar.TypeReg,
		}); err != nil {
			return nil, err
		}
		if _, err := w.Write(c); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// Return a new copy of the buffer each time it's opened.
	return tarball.LayerFromOpener(func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewBuffer(b.Bytes())), nil
	})
}
