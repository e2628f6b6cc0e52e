package store

import (
	"path"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"
)

// Layout is the path scheme inside a store root. Content addressing
// follows the registry convention of a two-character digest prefix dir.
const DefaultLayout = Layout("layerkit/v1")

type Layout string

// uploads
func (b Layout) UploadsPath() string {
	return path.Join(string(b), "uploads")
}

// uploads/{id}/data
func (b Layout) UploadDataPath(id string) string {
	return path.Join(b.UploadsPath(), id, "data")
}

// blobs
func (b Layout) BlobsPath() string {
	return path.Join(string(b), "blobs")
}

// blobs/{algorithm}/{hex_digest_prefix_2}/{hex_digest}/data
func (b Layout) BlobDataPath(dgst digest.Digest) string {
	return path.Join(b.BlobsPath(), dgst.Algorithm().String(), dgst.Hex()[0:2], dgst.Hex(), "data")
}

// refs
func (b Layout) RefsPath() string {
	return path.Join(string(b), "refs")
}

// refs/{name}/tags/{tag}/link
func (b Layout) TagLinkPath(name reference.Named, tag string) string {
	return path.Join(b.RefsPath(), name.Name(), "tags", tag, "link")
}
