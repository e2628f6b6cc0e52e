// Package testregistry runs an in-process distribution registry for
// integration-style tests against real push/pull round trips.
package testregistry

import (
	"context"
	"fmt"
	"time"

	"github.com/distribution/distribution/v3/configuration"
	"github.com/distribution/distribution/v3/registry"
	_ "github.com/distribution/distribution/v3/registry/auth/htpasswd"
	_ "github.com/distribution/distribution/v3/registry/storage/driver/filesystem"
	_ "github.com/distribution/distribution/v3/registry/storage/driver/inmemory"
	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/phayes/freeport"

	registryconfig "github.com/containerlabs/layerkit/pkg/registry"
)

type TestRegistry struct {
	ctx context.Context
	// rootdirectory is where registry data is stored when not using inmemory
	rootdirectory string
	// Host is the start of image URLs up to but excluding the first slash (after .Start)
	Host string
	// Config configures go-containerregistry for access to this registry (after .Start)
	Config registryconfig.RegistryConfig
}

// NewTestregistry prepares an ephemeral in-memory registry,
// or a filesystem-backed one when rootdirectory is non-empty.
func NewTestregistry(ctx context.Context, rootdirectory string) *TestRegistry {
	return &TestRegistry{
		ctx:           ctx,
		rootdirectory: rootdirectory,
	}
}

func (r *TestRegistry) Start() error {
	config := &configuration.Configuration{}
	config.Log.AccessLog.Disabled = true
	config.Log.Level = "error"
	port, err := freeport.GetFreePort()
	if err != nil {
		return fmt.Errorf("failed to get free port: %s", err)
	}

	r.Host = fmt.Sprintf("localhost:%d", port)
	config.HTTP.Addr = fmt.Sprintf("127.0.0.1:%d", port)
	config.HTTP.DrainTimeout = time.Duration(10) * time.Second
	// fast ephemeral
	config.Storage = map[string]configuration.Parameters{"inmemory": map[string]interface{}{}}
	// can be kept for debugging, can be pre-populated
	if r.rootdirectory != "" {
		config.Storage = map[string]configuration.Parameters{
			"filesystem": map[string]interface{}{
				"rootdirectory": r.rootdirectory,
			},
			"delete": map[string]interface{}{
				"enabled": true,
			},
		}
	}

	dockerRegistry, err := registry.NewRegistry(r.ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create registry: %w", err)
	}

	go dockerRegistry.ListenAndServe()

	r.Config = registryconfig.RegistryConfig{
		CraneOptions: crane.Options{},
	}

	return nil
}
