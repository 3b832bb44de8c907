/*
	Package server exposes a viewer over HTTP.  The API stands in for the
	desktop front end: the display model is read and written as JSON, sliders
	become index updates, and the rendered view is served as PNG.
*/

package server

import (
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/tlambert03/ndv/ndv"
)

const (
	// DefaultWebAddress is the default address of the viewer web server.
	DefaultWebAddress = "localhost:8000"

	// DefaultWorkers is the default size of the slicing request pool.
	DefaultWorkers = 4
)

// Config is the parsed TOML configuration.
type Config struct {
	Server  localConfig
	Logging ndv.LogConfig
	Cache   map[string]sizeConfig
	Dataset datasetConfig
}

type localConfig struct {
	HTTPAddress string   `toml:"httpAddress"`
	CorsOrigins []string `toml:"corsOrigins"`
	Workers     int      `toml:"workers"`
}

type sizeConfig struct {
	SizeMB int `toml:"size"`
}

type datasetConfig struct {
	// Ref locates the dataset: a local zarr directory, an s3:// or gs://
	// bucket, or an http(s) URL of an NGFF hierarchy.
	Ref string `toml:"ref"`
	// Path of the array within the store, for bare zarr hierarchies.
	Path string `toml:"path"`
	// Labels names the dimensions of a bare zarr array, e.g. ["t","c","y","x"].
	Labels []string `toml:"labels"`
}

// DefaultConfig returns the configuration used when no TOML file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: localConfig{
			HTTPAddress: DefaultWebAddress,
			Workers:     DefaultWorkers,
		},
		Cache: make(map[string]sizeConfig),
	}
}

// LoadConfig reads a TOML configuration file and installs its logging
// settings.  Relative paths are resolved against the file's directory.
func LoadConfig(filename string) (*Config, error) {
	c := DefaultConfig()
	if _, err := toml.DecodeFile(filename, c); err != nil {
		return nil, fmt.Errorf("could not decode TOML config %q: %v", filename, err)
	}
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = DefaultWebAddress
	}
	if c.Server.Workers < 1 {
		c.Server.Workers = DefaultWorkers
	}
	if c.Logging.Logfile != "" && !filepath.IsAbs(c.Logging.Logfile) {
		c.Logging.Logfile = filepath.Join(filepath.Dir(filename), c.Logging.Logfile)
	}
	c.Logging.SetLogger()
	return c, nil
}

// CacheMB returns the configured size of a named cache, or 0 if unset.
func (c *Config) CacheMB(name string) int {
	return c.Cache[name].SizeMB
}
