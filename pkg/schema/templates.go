package schema

import (
	"os"

	v1 "github.com/containerlabs/layerkit/pkg/schema/v1"
	"go.uber.org/zap"
)

// TagFromEnv gets target ref from a custom build invocation, skaffold style
func TagFromEnv() string {
	image, exists := os.LookupEnv("IMAGE")
	if exists {
		zap.L().Debug("IMAGE env found", zap.String("value", image))
	} else {
		return ""
	}
	return image
}

func TagFromEnvRequired() string {
	image := TagFromEnv()
	if image == "" {
		zap.L().Error("this mode requires IMAGE env")
	}
	return image
}

func IgnoreDefault() []string {
	return []string{
		"*Dockerfile",
		"*.dockerignore",
		"layerkit.yaml",
	}
}

// TemplateApp is the config used when only a base ref is given:
// current directory becomes a single /app layer
func TemplateApp(base string) v1.BuildConfig {
	return v1.BuildConfig{
		Status: v1.BuildConfigStatus{
			Template: true,
		},
		Base: base,
		Tag:  TagFromEnvRequired(),
		Layers: []v1.Layer{
			{
				LocalDir: v1.LocalDir{
					Path:          ".",
					ContainerPath: "/app",
					Ignore:        IgnoreDefault(),
					MaxFiles:      100,
					MaxSize:       "104857600", // "100Mi"
				},
			},
		},
	}
}
