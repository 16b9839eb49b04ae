// Package config provides configuration structures and utilities for acsmirror.
// It defines the remote roots to mirror, the region and documentation filters
// applied during a crawl, politeness settings, and where local state is kept.
package config
