package platform

import (
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/match"
	"go.uber.org/zap"
)

// Parse parses platform strings like "linux/amd64" or "linux/arm64/v8".
func Parse(names []string) ([]v1.Platform, error) {
	if len(names) == 0 {
		return nil, nil
	}
	platforms := make([]v1.Platform, len(names))
	for i, s := range names {
		p, err := v1.ParsePlatform(s)
		if err != nil {
			zap.L().Error("platform", zap.Int("i", i), zap.String("config", s), zap.Error(err))
			return nil, err
		}
		platforms[i] = *p
	}
	return platforms, nil
}

// NewMatcher matches descriptors against the requested platform strings,
// or everything when none are requested.
func NewMatcher(names []string) (match.Matcher, error) {
	if len(names) == 0 {
		return func(desc v1.Descriptor) bool {
			return true
		}, nil
	}
	platforms, err := Parse(names)
	if err != nil {
		return nil, err
	}
	return match.Platforms(platforms...), nil
}

// Strings renders platforms back to os/arch[/variant] form.
func Strings(platforms []v1.Platform) []string {
	if len(platforms) == 0 {
		return nil // works with omitempty
	}
	result := make([]string, 0, len(platforms))
	for _, pf := range platforms {
		result = append(result, pf.String())
	}
	return result
}
