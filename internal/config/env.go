package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "ACSMIRROR_"

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. With no
// arguments it reads ".env" in the working directory. A missing file is
// not an error.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, name := range filenames {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
	}
	return nil
}

// ApplyEnv overrides configuration fields from ACSMIRROR_* variables.
// lookup is normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + "BASE_URL"); ok && v != "" {
		c.BaseURL = v
	}
	if v, ok := lookup(EnvPrefix + "SHELLS_URL"); ok && v != "" {
		c.ShellsURL = v
	}
	if v, ok := lookup(EnvPrefix + "OUTPUT_DIR"); ok && v != "" {
		c.OutputDir = v
	}
	if v, ok := lookup(EnvPrefix + "USER_AGENT"); ok && v != "" {
		c.UserAgent = v
	}
	if v, ok := lookup(EnvPrefix + "REGIONS"); ok && v != "" {
		c.Regions = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "DB_DIR"); ok && v != "" {
		c.DBDir = v
	}
	if v, ok := lookup(EnvPrefix + "RATE_LIMIT"); ok && v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sRATE_LIMIT: %w", EnvPrefix, err)
		}
		c.RateLimit = rate
	}
	return nil
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
