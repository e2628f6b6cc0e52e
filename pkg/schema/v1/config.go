package v1

// BuildConfig is the layerkit.yaml model: how to produce an image
// from a base reference and local content layers.
type BuildConfig struct {
	Status BuildConfigStatus `json:"-"`
	// Base is the base image reference, empty means start from an empty OCI image
	Base string `json:"base,omitempty"`
	// Tag is the result reference to be pushed
	Tag       string   `json:"tag,omitempty"`
	Platforms []string `json:"platforms,omitempty"`
	Layers    []Layer  `json:"layers,omitempty"`
	// Runtime sets image config fields consumed at container start,
	// it does not start anything
	Runtime RuntimeConfig `json:"runtime,omitempty"`
}

type BuildConfigStatus struct {
	Template  bool   // true if config is from a template
	Md5       string // config source md5 (not for template)
	Sha256    string // config source sha256 (not for template)
	Overrides BuildConfigOverrides
}

type BuildConfigOverrides struct {
	Base bool
}

// RuntimeConfig maps to OCI image config fields,
// i.e. what `docker run` would pick up from the image.
type RuntimeConfig struct {
	// Env entries are KEY=VALUE, appended to or overriding base image env
	Env []string `json:"env,omitempty"`
	// Entrypoint replaces the base image entrypoint when non-empty
	Entrypoint []string `json:"entrypoint,omitempty"`
	// Cmd replaces the base image cmd when non-empty
	Cmd []string `json:"cmd,omitempty"`
	// WorkingDir replaces the base image working directory when non-empty
	WorkingDir string `json:"workingDir,omitempty"`
	// Labels are added to base image config labels
	Labels map[string]string `json:"labels,omitempty"`
}

type Layer struct {
	Attributes LayerAttributes `json:"layerAttributes,omitempty"`
	// exactly one of the following
	LocalDir  LocalDir  `json:"localDir,omitempty"`
	LocalFile LocalFile `json:"localFile,omitempty"`
}

type LayerAttributes struct {
	// generic, supported for applicable layer types
	Uid uint16 `json:"uid,omitempty"`
	Gid uint16 `json:"gid,omitempty"`

	// Mode bits to use on files, must be a value between 0 and 0777.
	// YAML accepts both octal and decimal values, JSON requires decimal values for mode bits.
	// Note that if you don't specify mode, layerkit will try to preserve local mode which might void reproducibility.
	FileMode int32 `json:"mode,omitempty"`

	// DirMode bits to use on directories, must be a value between 0 and 0777.
	// If not specified, the mode value will be used for directories as well.
	DirMode int32 `json:"dirMode,omitempty"`
}

// LocalFile is a single file that should be appended as-is to base
// with an optional path prefix, for example ./target/runner to /runner
type LocalFile struct {
	Path          string `json:"path"`
	ContainerPath string `json:"containerPath,omitempty"`
	MaxSize       string `json:"maxSize,omitempty"`
}

// LocalDir is a directory structure that should be appended as-is to base
// with an optional path prefix, for example ./target/app to /app
type LocalDir struct {
	Path          string   `json:"path"`
	ContainerPath string   `json:"containerPath,omitempty"`
	Ignore        []string `json:"ignore,omitempty"`
	MaxFiles      int      `json:"maxFiles,omitempty"`
	MaxSize       string   `json:"maxSize,omitempty"`
}
