package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultBaseURL is the root of the published summary file tree.
	// Every year directory lives directly below it.
	DefaultBaseURL = "https://www2.census.gov/programs-surveys/acs/summary_file/"

	// DefaultShellsURL is the root of the table shell workbooks, one
	// directory per year.
	DefaultShellsURL = "https://www2.census.gov/programs-surveys/acs/tech_docs/table_shells/"

	// DefaultOutputDir is where the local mirror is built, relative to the
	// working directory.
	DefaultOutputDir = "acs_sf_downloads"

	// DefaultTimeout bounds a single HTTP exchange. Summary archives for the
	// large states run to hundreds of megabytes, so this is generous.
	DefaultTimeout = 30 * time.Minute

	// DefaultRateLimit is the number of requests per second sent to the
	// remote server. Zero disables limiting.
	DefaultRateLimit = 2.0

	// DefaultUserAgent identifies acsmirror in HTTP requests.
	DefaultUserAgent = "acsmirror/1.0 (+https://github.com/nao1215/acsmirror)"

	// DefaultJobs is the number of output directories unpacked at the same time.
	DefaultJobs = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "acsmirror"
)

// DefaultDocExtensions are the documentation files mirrored from every
// year's documentation tree.
func DefaultDocExtensions() []string {
	return []string{".pdf", ".txt", ".xls", ".xlsx", ".csv"}
}

// DefaultShellExtensions are the files mirrored from the table shells tree.
func DefaultShellExtensions() []string {
	return []string{".xls", ".xlsx", ".csv", ".txt"}
}

var yearPattern = regexp.MustCompile(`^[0-9]{4}$`)

// Config holds all configuration options for acsmirror.
// It is populated from defaults, the optional YAML file, the environment
// and CLI flags, in that order of increasing precedence. The crawler itself
// never sees a Config: it receives the immutable Settings derived from it.
type Config struct {
	// BaseURL is the summary file root whose year directories are crawled.
	BaseURL string

	// ShellsURL is the table shells root used by the shells command.
	ShellsURL string

	// OutputDir is the local directory the mirror is written under.
	OutputDir string

	// Regions is the set of accepted region names. Region names are the
	// remote directory names, e.g. "NewYork" or "DistrictofColumbia".
	Regions []string

	// TractsAndBlockGroups also accepts the fine-grained
	// "_Tracts_Block_Groups_Only" archives.
	TractsAndBlockGroups bool

	// DocExtensions are the accepted documentation file extensions.
	DocExtensions []string

	// ShellExtensions are the accepted table shell file extensions.
	ShellExtensions []string

	// Years optionally restricts the crawl to these year directories.
	// Empty means every year published under BaseURL.
	Years []string

	// Overwrite re-downloads files that already exist locally.
	Overwrite bool

	// Timeout bounds each HTTP request, including the body transfer.
	Timeout time.Duration

	// RateLimit is the maximum number of requests per second. Zero disables it.
	RateLimit float64

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// RespectRobots consults the server's robots.txt before every request.
	RespectRobots bool

	// DBDir is the directory holding the transfer manifest database.
	// Empty disables the manifest.
	DBDir string

	// Jobs is the number of output directories burst unpacks concurrently.
	Jobs int

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path to the YAML configuration file.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:         DefaultBaseURL,
		ShellsURL:       DefaultShellsURL,
		OutputDir:       DefaultOutputDir,
		Regions:         DefaultRegions(),
		DocExtensions:   DefaultDocExtensions(),
		ShellExtensions: DefaultShellExtensions(),
		Timeout:         DefaultTimeout,
		RateLimit:       DefaultRateLimit,
		UserAgent:       DefaultUserAgent,
		DBDir:           XDGDataDir(),
		Jobs:            DefaultJobs,
	}
}

// XDGDataDir returns the XDG data directory for acsmirror.
// On Linux: ~/.local/share/acsmirror
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for acsmirror.
// On Linux: ~/.config/acsmirror
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found, wrapped around one of the sentinel
// errors in errors.go.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}
	if err := validateURL(c.BaseURL); err != nil {
		return err
	}
	if c.ShellsURL != "" {
		if err := validateURL(c.ShellsURL); err != nil {
			return err
		}
	}

	if c.OutputDir == "" {
		return ErrNoOutputDir
	}

	if len(c.Regions) == 0 {
		return ErrNoRegions
	}
	for _, r := range c.Regions {
		if !IsKnownRegion(r) {
			return fmt.Errorf("%w: %q", ErrUnknownRegion, r)
		}
	}

	for _, ext := range append(append([]string{}, c.DocExtensions...), c.ShellExtensions...) {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("%w: %q", ErrInvalidExtension, ext)
		}
	}

	for _, y := range c.Years {
		if !yearPattern.MatchString(y) {
			return fmt.Errorf("%w: %q", ErrInvalidYear, y)
		}
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}

	return nil
}

// Settings derives the immutable crawl settings from the configuration.
func (c *Config) Settings() Settings {
	return NewSettings(c.Regions, c.TractsAndBlockGroups, c.DocExtensions,
		WithShellExtensions(c.ShellExtensions),
		WithYears(c.Years),
	)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
	}
	return nil
}
