// Package config handles tool configuration loading and management.
package config

// Config holds all settings shared by the mesh tools.
type Config struct {
	Simplify SimplifyConfig `yaml:"simplify"`
	Viewer   ViewerConfig   `yaml:"viewer"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SimplifyConfig holds default decimation parameters.
type SimplifyConfig struct {
	// TargetRatio is the default fraction of input faces to keep when
	// no explicit face count is given.
	TargetRatio    float64 `yaml:"target_ratio"`
	Aggressiveness float64 `yaml:"aggressiveness"`
	Verbose        bool    `yaml:"verbose"`
}

// ViewerConfig holds display settings for the mesh viewer.
type ViewerConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
	Wireframe  bool `yaml:"wireframe"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Simplify: SimplifyConfig{
			TargetRatio:    0.5,
			Aggressiveness: 7.0,
			Verbose:        false,
		},
		Viewer: ViewerConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			Wireframe:  false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
