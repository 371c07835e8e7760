package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

const DefaultPath = "config.toml"

type LogConfig struct {
	Level  string `toml:"level" mapstructure:"level"`
	Format string `toml:"format" mapstructure:"format"`
}

type Config struct {
	Token   string `toml:"token" mapstructure:"token"`
	Host    string `toml:"host" mapstructure:"host"`
	Port    string `toml:"port" mapstructure:"port"`
	Mode    string `toml:"mode" mapstructure:"mode"`
	Libonnx string `toml:"libonnx" mapstructure:"libonnx"`

	ModelPath      string `toml:"model_path" mapstructure:"model_path"`
	Workers        int    `toml:"workers" mapstructure:"workers"`
	IntraOpThreads int    `toml:"intra_op_threads" mapstructure:"intra_op_threads"`

	UploadDir         string   `toml:"upload_dir" mapstructure:"upload_dir"`
	MaxUploadSize     int64    `toml:"max_upload_size" mapstructure:"max_upload_size"`
	AllowedExtensions []string `toml:"allowed_extensions" mapstructure:"allowed_extensions"`

	Log LogConfig `toml:"log" mapstructure:"log"`
}

var (
	cfg      Config
	loadOnce sync.Once
)

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		Token:             "",
		Host:              "0.0.0.0",
		Port:              "5000",
		Mode:              "release",
		ModelPath:         "blood_group_model.onnx",
		Workers:           2,
		UploadDir:         "static/uploads",
		MaxUploadSize:     16 * 1024 * 1024,
		AllowedExtensions: []string{"png", "jpg", "jpeg", "bmp"},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load overlays the TOML file at path onto the defaults. A missing file is not
// an error.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	switch c.Mode {
	case "debug", "release", "test":
	default:
		c.Mode = "release"
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.MaxUploadSize <= 0 {
		c.MaxUploadSize = Default().MaxUploadSize
	}
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = Default().AllowedExtensions
	}
	return c, nil
}

func C() Config {
	loadOnce.Do(func() {
		c, err := Load(DefaultPath)
		if err != nil {
			panic(err)
		}
		cfg = c
	})
	return cfg
}
