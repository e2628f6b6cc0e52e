package registry

import (
	"regexp"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"go.uber.org/zap"
)

var (
	insecureAccessRefs = regexp.MustCompile(`^[^/]+\.local(:[0-9]+)?/`)
)

type RegistryConfig struct {
	CraneOptions crane.Options
}

// New configures registry access for the given refs,
// enabling insecure access when any of them is on a .local registry.
func New(refs ...string) (*RegistryConfig, error) {
	c := &RegistryConfig{}
	// https://github.com/google/go-containerregistry/blob/v0.13.0/pkg/crane/options.go#L43
	c.CraneOptions = crane.Options{
		Remote: []remote.Option{
			remote.WithAuthFromKeychain(authn.DefaultKeychain),
		},
		Keychain: authn.DefaultKeychain,
	}

	for _, ref := range refs {
		if insecureAccessRefs.MatchString(ref) {
			zap.L().Debug("insecure access enabled", zap.String("ref", ref))
			crane.Insecure(&c.CraneOptions)
			break
		}
	}

	return c, nil
}
