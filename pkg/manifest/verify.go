package manifest

import (
	"fmt"
	"io"

	v1 "github.com/google/go-containerregistry/pkg/v1"
)

// VerifyContent reads r to EOF and checks that content matches the
// descriptor's digest and size. The reader is consumed either way.
func VerifyContent(d v1.Descriptor, r io.Reader) error {
	if err := ValidateDescriptor(d); err != nil {
		return err
	}
	verifier := Digest(d).Verifier()
	n, err := io.Copy(verifier, r)
	if err != nil {
		return fmt.Errorf("read content for %s: %w", d.Digest.String(), err)
	}
	if n != d.Size {
		return fmt.Errorf("content size %d does not match descriptor size %d for %s", n, d.Size, d.Digest.String())
	}
	if !verifier.Verified() {
		return fmt.Errorf("content does not match digest %s", d.Digest.String())
	}
	return nil
}
