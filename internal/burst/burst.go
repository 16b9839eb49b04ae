package burst

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// OutputDir is the directory created under the top directory.
const OutputDir = "acs"

// DefaultJobs is the default number of output directories unpacked at once.
const DefaultJobs = 4

var archivePattern = regexp.MustCompile(`acs_(?P<type>non_places|places)_(?P<year>[0-9]*)_(?P<range>[0-9-]*)\.zip`)

// Archive is a table archive found in the raw directory.
type Archive struct {
	// Path is the archive location.
	Path string

	// Type is "places" or "non_places".
	Type string

	Year       int
	TableRange string
}

// Dir returns the directory the archive is unpacked into, relative to the
// acs/ directory.
func (a Archive) Dir() string {
	return filepath.Join(a.Type, strconv.Itoa(a.Year))
}

// ParseArchiveName recognizes names like "acs_places_2013_0-40.zip". Only
// the base name of path is examined.
func ParseArchiveName(path string) (Archive, bool) {
	m := archivePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return Archive{}, false
	}
	year, err := strconv.Atoi(m[archivePattern.SubexpIndex("year")])
	if err != nil {
		return Archive{}, false
	}
	return Archive{
		Path:       path,
		Type:       m[archivePattern.SubexpIndex("type")],
		Year:       year,
		TableRange: m[archivePattern.SubexpIndex("range")],
	}, true
}

// Result summarizes one Run.
type Result struct {
	// MovedAside is the path the previous acs/ directory was renamed to,
	// or empty if there was none.
	MovedAside string

	Archives int
	Files    int
	Bytes    int64
}

// Burster unpacks archives on a filesystem.
type Burster struct {
	fs     afero.Fs
	logger *slog.Logger
	jobs   int
	now    func() time.Time
}

// Option configures a Burster.
type Option func(*Burster)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Burster) {
		b.logger = logger
	}
}

// WithJobs sets how many output directories are unpacked at once.
func WithJobs(n int) Option {
	return func(b *Burster) {
		if n > 0 {
			b.jobs = n
		}
	}
}

// WithClock sets the time source for the moved-aside suffix.
func WithClock(now func() time.Time) Option {
	return func(b *Burster) {
		b.now = now
	}
}

// New creates a Burster working on fs.
func New(fs afero.Fs, opts ...Option) *Burster {
	b := &Burster{
		fs:   fs,
		jobs: DefaultJobs,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Find returns the archives below rawDir in path order.
func (b *Burster) Find(rawDir string) ([]Archive, error) {
	var archives []Archive
	err := afero.Walk(b.fs, rawDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if a, ok := ParseArchiveName(path); ok {
			archives = append(archives, a)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", rawDir, err)
	}
	sort.Slice(archives, func(i, j int) bool { return archives[i].Path < archives[j].Path })
	return archives, nil
}

// Run unpacks every archive below rawDir into topDir/acs.
func (b *Burster) Run(ctx context.Context, topDir, rawDir string) (Result, error) {
	var res Result

	acsDir := filepath.Join(topDir, OutputDir)
	exists, err := afero.DirExists(b.fs, acsDir)
	if err != nil {
		return res, fmt.Errorf("failed to check %s: %w", acsDir, err)
	}
	if exists {
		aside := acsDir + b.now().Format("_20060102_150405")
		if err := b.fs.Rename(acsDir, aside); err != nil {
			return res, fmt.Errorf("failed to move %s aside: %w", acsDir, err)
		}
		res.MovedAside = aside
		b.logger.Info("moved previous output aside", "from", acsDir, "to", aside)
	}
	if err := b.fs.MkdirAll(acsDir, 0o755); err != nil {
		return res, fmt.Errorf("failed to create %s: %w", acsDir, err)
	}

	archives, err := b.Find(rawDir)
	if err != nil {
		return res, err
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.jobs)
	for _, group := range groupByDir(archives) {
		g.Go(func() error {
			for _, a := range group {
				files, n, err := b.extract(ctx, a, filepath.Join(acsDir, a.Dir()))
				if err != nil {
					return fmt.Errorf("failed to unpack %s: %w", a.Path, err)
				}
				b.logger.Info("unpacked archive", "archive", a.Path, "type", a.Type, "year", a.Year, "files", files)

				mu.Lock()
				res.Archives++
				res.Files += files
				res.Bytes += n
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	return res, nil
}

// groupByDir splits archives by output directory. Archives sharing a
// directory stay in path order and are unpacked one after another, so a
// later archive overwrites the entries it shares with an earlier one.
func groupByDir(archives []Archive) [][]Archive {
	index := make(map[string]int)
	var groups [][]Archive
	for _, a := range archives {
		i, ok := index[a.Dir()]
		if !ok {
			i = len(groups)
			index[a.Dir()] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], a)
	}
	return groups
}

// extract unpacks one archive into dir and returns the number of files
// and bytes written.
func (b *Burster) extract(ctx context.Context, a Archive, dir string) (int, int64, error) {
	f, err := b.fs.Open(a.Path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, 0, err
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return 0, 0, err
	}

	for _, zf := range zr.File {
		if err := checkEntryName(zf.Name); err != nil {
			return 0, 0, err
		}
	}

	if err := b.fs.MkdirAll(dir, 0o755); err != nil {
		return 0, 0, err
	}

	var files int
	var total int64
	for _, zf := range zr.File {
		if err := ctx.Err(); err != nil {
			return files, total, err
		}
		dest := filepath.Join(dir, filepath.FromSlash(zf.Name))
		if zf.FileInfo().IsDir() {
			if err := b.fs.MkdirAll(dest, 0o755); err != nil {
				return files, total, err
			}
			continue
		}
		n, err := b.extractFile(zf, dest)
		if err != nil {
			return files, total, fmt.Errorf("%s: %w", zf.Name, err)
		}
		files++
		total += n
	}
	return files, total, nil
}

func (b *Burster) extractFile(zf *zip.File, dest string) (int64, error) {
	if err := b.fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}
	rc, err := zf.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	out, err := b.fs.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, rc)
	if err != nil {
		_ = out.Close()
		return n, err
	}
	return n, out.Close()
}

func checkEntryName(name string) error {
	if strings.HasPrefix(name, "/") || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrUnsafeEntry, name)
	}
	return nil
}
