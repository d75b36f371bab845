// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Defaults for a dithering comparison run. The resize width matches the
// 384-dot print head of the target thermal printer.
const (
	DefaultTool       = "convert"
	DefaultInputPath  = "assets/fop.png"
	DefaultOutputDir  = "assets/dithers"
	DefaultResize     = "384x"
	DefaultColorspace = "Gray"
	DefaultDiffusion  = "FloydSteinberg"
	DefaultExtension  = "png"
)

// BatchConfig holds the settings shared by every job in a batch.
type BatchConfig struct {
	// Tool is the external conversion binary (e.g. "convert" or "magick").
	Tool string `json:"tool" yaml:"tool"`

	// InputPath is the source image read by every job.
	InputPath string `json:"input" yaml:"input"`

	// OutputDir receives one image per method, named <method>.<ext>.
	OutputDir string `json:"out_dir" yaml:"out_dir"`

	// Resize is the geometry passed to -resize. Empty omits the flag.
	Resize string `json:"resize" yaml:"resize"`

	// Colorspace is passed to -colorspace. Empty omits the flag.
	Colorspace string `json:"colorspace" yaml:"colorspace"`

	// Diffusion is the error-diffusion algorithm passed to -dither after
	// the method-specific flags.
	Diffusion string `json:"diffusion" yaml:"diffusion"`

	// Extension is the output file extension without the dot (default "png").
	Extension string `json:"extension" yaml:"extension"`

	// Workers bounds how many jobs run at once. Values below 2 run the
	// batch sequentially.
	Workers int `json:"workers" yaml:"workers"`
}

// WithDefaults returns a copy of c with zero-valued fields filled in.
// Resize and Colorspace are left alone so callers can disable them.
func (c BatchConfig) WithDefaults() BatchConfig {
	if c.Tool == "" {
		c.Tool = DefaultTool
	}
	if c.Diffusion == "" {
		c.Diffusion = DefaultDiffusion
	}
	if c.Extension == "" {
		c.Extension = DefaultExtension
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return c
}

// DefaultBatchConfig returns the configuration used when nothing is set.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		Tool:       DefaultTool,
		InputPath:  DefaultInputPath,
		OutputDir:  DefaultOutputDir,
		Resize:     DefaultResize,
		Colorspace: DefaultColorspace,
		Diffusion:  DefaultDiffusion,
		Extension:  DefaultExtension,
		Workers:    1,
	}
}
