package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".acsmirror"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .acsmirror configuration file.
// Every field is optional; unset fields leave the current value alone.
type File struct {
	BaseURL              string   `yaml:"baseURL,omitempty"`
	ShellsURL            string   `yaml:"shellsURL,omitempty"`
	OutputDir            string   `yaml:"outputDir,omitempty"`
	Regions              []string `yaml:"regions,omitempty"`
	TractsAndBlockGroups *bool    `yaml:"tractsAndBlockGroups,omitempty"`
	DocExtensions        []string `yaml:"docExtensions,omitempty"`
	ShellExtensions      []string `yaml:"shellExtensions,omitempty"`
	Years                []string `yaml:"years,omitempty"`
	Timeout              string   `yaml:"timeout,omitempty"`
	RateLimit            *float64 `yaml:"rateLimit,omitempty"`
	UserAgent            string   `yaml:"userAgent,omitempty"`
	RespectRobots        *bool    `yaml:"respectRobots,omitempty"`
	DBDir                string   `yaml:"dbDir,omitempty"`
	Jobs                 int      `yaml:"jobs,omitempty"`
}

// LoadConfigFile loads a configuration file from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// Apply copies every field set in the file onto c.
func (cf *File) Apply(c *Config) error {
	if cf.BaseURL != "" {
		c.BaseURL = cf.BaseURL
	}
	if cf.ShellsURL != "" {
		c.ShellsURL = cf.ShellsURL
	}
	if cf.OutputDir != "" {
		c.OutputDir = cf.OutputDir
	}
	if len(cf.Regions) > 0 {
		c.Regions = append([]string(nil), cf.Regions...)
	}
	if cf.TractsAndBlockGroups != nil {
		c.TractsAndBlockGroups = *cf.TractsAndBlockGroups
	}
	if len(cf.DocExtensions) > 0 {
		c.DocExtensions = append([]string(nil), cf.DocExtensions...)
	}
	if len(cf.ShellExtensions) > 0 {
		c.ShellExtensions = append([]string(nil), cf.ShellExtensions...)
	}
	if len(cf.Years) > 0 {
		c.Years = append([]string(nil), cf.Years...)
	}
	if cf.Timeout != "" {
		d, err := time.ParseDuration(cf.Timeout)
		if err != nil {
			return err
		}
		c.Timeout = d
	}
	if cf.RateLimit != nil {
		c.RateLimit = *cf.RateLimit
	}
	if cf.UserAgent != "" {
		c.UserAgent = cf.UserAgent
	}
	if cf.RespectRobots != nil {
		c.RespectRobots = *cf.RespectRobots
	}
	if cf.DBDir != "" {
		c.DBDir = cf.DBDir
	}
	if cf.Jobs > 0 {
		c.Jobs = cf.Jobs
	}
	return nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .acsmirror in the current directory
// 3. Look for .acsmirror in the user's home directory
// 4. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
