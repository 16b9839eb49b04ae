package metadata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// Header is the first row written by Assemble.
var Header = []string{
	"FILENAME", "ACS_YEAR", "ACS_SPAN", "TABLE",
	"SHORTCOLNAME", "LONGCOLNAME",
	"EST_OR_MARGIN", "NAME", "ROLLUP1", "ROLLUP2",
}

// ErrMalformedRow is returned for metadata rows with fewer than two fields.
var ErrMalformedRow = errors.New("metadata row needs a short and a long column name")

const utf8BOM = "\ufeff"

// Stats summarizes one Assemble call.
type Stats struct {
	Files int
	Rows  int
}

// Assembler reads metadata files from a filesystem.
type Assembler struct {
	fs     afero.Fs
	logger *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		a.logger = logger
	}
}

// NewAssembler creates an Assembler reading from fs.
func NewAssembler(fs afero.Fs, opts ...Option) *Assembler {
	a := &Assembler{fs: fs}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Assemble walks topDir and writes the header and one row per column of
// every *_metadata.csv file to w. Within a directory, files are read in
// name order before sub-directories, which are also visited in name
// order. FILENAME names the matching _with_ann.csv data file.
func (a *Assembler) Assemble(ctx context.Context, topDir string, w io.Writer) (Stats, error) {
	var stats Stats
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return stats, err
	}

	err := a.walk(ctx, topDir, func(path string) error {
		tf, ok := ParseFilename(path)
		if !ok || tf.Kind != KindMetadata {
			return nil
		}
		n, err := a.assembleFile(path, tf, cw)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		stats.Files++
		stats.Rows += n
		a.logger.Debug("assembled metadata", "file", path, "rows", n)
		return nil
	})
	if err != nil {
		return stats, err
	}

	cw.Flush()
	return stats, cw.Error()
}

// walk calls fn for every regular file below dir: first the files of a
// directory, then its sub-directories.
func (a *Assembler) walk(ctx context.Context, dir string, fn func(path string) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := afero.ReadDir(a.fs, dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var subdirs []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() {
			subdirs = append(subdirs, path)
			continue
		}
		if err := fn(path); err != nil {
			return err
		}
	}
	for _, sub := range subdirs {
		if err := a.walk(ctx, sub, fn); err != nil {
			return err
		}
	}
	return nil
}

func (a *Assembler) assembleFile(path string, tf TableFile, cw *csv.Writer) (int, error) {
	f, err := a.fs.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dataFile := filepath.Join(filepath.Dir(path), strings.Replace(filepath.Base(path), "_metadata", "_with_ann", 1))
	prefix := []string{dataFile, strconv.Itoa(tf.Year), tf.SpanString(), tf.Table}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var rows int
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		if rows == 0 && len(rec) > 0 {
			rec[0] = strings.TrimPrefix(rec[0], utf8BOM)
		}
		if len(rec) < 2 {
			line, _ := r.FieldPos(0)
			return rows, fmt.Errorf("line %d: %w", line, ErrMalformedRow)
		}

		parts := BurstName(rec[1])
		out := append(append([]string{}, prefix...), rec[0], rec[1], parts.EstOrMargin, parts.Name, parts.Rollup1, parts.Rollup2)
		if err := cw.Write(out); err != nil {
			return rows, err
		}
		rows++
	}
}

// AssembleTo writes the assembled metadata of topDir to the file output.
func (a *Assembler) AssembleTo(ctx context.Context, topDir, output string) (Stats, error) {
	f, err := a.fs.Create(output)
	if err != nil {
		return Stats{}, err
	}
	stats, err := a.Assemble(ctx, topDir, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return stats, err
}
