// Package export materializes an image's ordered layers into a single
// filesystem view, the way a runtime would before starting a process.
// Layers are applied in manifest order with whiteouts honored; nothing
// is mounted or executed.
package export

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"go.uber.org/zap"
)

// Tar writes the flattened filesystem of img as a tar stream.
func Tar(img v1.Image, w io.Writer) error {
	r := mutate.Extract(img)
	defer r.Close()
	n, err := io.Copy(w, r)
	if err != nil {
		return fmt.Errorf("flatten to tar: %w", err)
	}
	zap.L().Info("exported", zap.Int64("bytes", n))
	return nil
}

// Dir unpacks the flattened filesystem of img under dest, which must be
// an existing directory or creatable.
func Dir(img v1.Image, dest string) error {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}
	r := mutate.Extract(img)
	defer r.Close()

	tr := tar.NewReader(r)
	files := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read flattened tar: %w", err)
		}
		target, err := securePath(dest, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode).Perm()); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode).Perm())
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return fmt.Errorf("write %s: %w", target, err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			files++
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil && !os.IsExist(err) {
				return err
			}
		case tar.TypeLink:
			linkTarget, err := securePath(dest, hdr.Linkname)
			if err != nil {
				return err
			}
			if err := os.Link(linkTarget, target); err != nil && !os.IsExist(err) {
				return err
			}
		default:
			zap.L().Debug("skipping tar entry",
				zap.String("name", hdr.Name),
				zap.Uint8("type", hdr.Typeflag),
			)
		}
	}
	zap.L().Info("exported", zap.String("dest", dest), zap.Int("files", files))
	return nil
}

// securePath joins name under dest and refuses escapes.
func securePath(dest string, name string) (string, error) {
	cleaned := filepath.Clean(filepath.Join("/", name))
	target := filepath.Join(dest, cleaned)
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) && target != filepath.Clean(dest) {
		return "", fmt.Errorf("tar entry escapes destination: %s", name)
	}
	return target, nil
}
