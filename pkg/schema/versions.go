package schema

import (
	"crypto/md5"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	v1 "github.com/containerlabs/layerkit/pkg/schema/v1"
	"github.com/invopop/yaml"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Fs is the underlying filesystem to use for reading configuration. OS FS by default
var Fs = afero.NewOsFs()

var stdin []byte

// ParseConfig reads a configuration file.
func ParseConfig(filename string) (v1.BuildConfig, error) {
	noconfig := v1.BuildConfig{}
	buf, err := ReadConfiguration(filename)
	if err != nil {
		return noconfig, fmt.Errorf("read layerkit config: %w", err)
	}
	return parseConfig(buf)
}

func parseConfig(buf []byte) (v1.BuildConfig, error) {
	var config v1.BuildConfig
	// config structs carry json tags only, so decode YAML via JSON semantics
	if err := yaml.Unmarshal(buf, &config); err != nil {
		return config, fmt.Errorf("unmarshal layerkit config: %w", err)
	}
	config.Status.Sha256 = fmt.Sprintf("%x", sha256.Sum256(buf))
	config.Status.Md5 = fmt.Sprintf("%x", md5.Sum(buf))
	return config, nil
}

// ReadConfiguration reads config and returns content
func ReadConfiguration(filePath string) ([]byte, error) {
	switch {
	case filePath == "":
		return nil, errors.New("filename not specified")
	case filePath == "-":
		if len(stdin) == 0 {
			var err error
			stdin, err = io.ReadAll(os.Stdin)
			if err != nil {
				return []byte{}, err
			}
		}
		return stdin, nil
	default:
		if !filepath.IsAbs(filePath) {
			dir, err := os.Getwd()
			if err != nil {
				zap.L().Error("get absolute path for config",
					zap.String("path", filePath),
					zap.Error(err),
				)
				return []byte{}, err
			}
			filePath = filepath.Join(dir, filePath)
		}
		contents, err := afero.ReadFile(Fs, filePath)
		if err != nil {
			return []byte{}, err
		}

		return contents, err
	}
}
