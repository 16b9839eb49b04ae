package transfer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/crypto/blake2b"

	"github.com/nao1215/acsmirror/internal/fetch"
)

// PartSuffix is appended to the destination while a transfer is in progress.
const PartSuffix = ".part"

// DefaultChunkSize is the size of the copy buffer.
const DefaultChunkSize = 1024 * 1024

// Getter retrieves a URL and returns a successful response.
type Getter interface {
	Get(ctx context.Context, rawURL string) (*http.Response, error)
}

// Result describes the outcome of one Save call.
type Result struct {
	URL  string
	Path string

	// Skipped is true when the destination already existed and was kept.
	Skipped bool

	// Bytes is the number of bytes written. Zero when skipped.
	Bytes int64

	// Digest is the hex BLAKE2b-256 of the written content. Empty when skipped.
	Digest string

	// Elapsed is the wall time spent on the transfer.
	Elapsed time.Duration
}

// Transferer saves remote files onto a filesystem.
type Transferer struct {
	fs        afero.Fs
	client    Getter
	logger    *slog.Logger
	chunkSize int
}

// Option configures a Transferer.
type Option func(*Transferer)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transferer) {
		t.logger = logger
	}
}

// WithChunkSize sets the copy buffer size.
func WithChunkSize(n int) Option {
	return func(t *Transferer) {
		if n > 0 {
			t.chunkSize = n
		}
	}
}

// New creates a Transferer writing to fs and fetching with client.
func New(fs afero.Fs, client Getter, opts ...Option) *Transferer {
	t := &Transferer{
		fs:        fs,
		client:    client,
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

// Exists reports whether the destination path is already present.
func (t *Transferer) Exists(dest string) (bool, error) {
	return afero.Exists(t.fs, dest)
}

// Save downloads url to dest. When dest exists and overwrite is false
// nothing is fetched. Request failures are returned as *fetch.FetchError;
// failures while streaming or writing as *TransferError, in which case
// only dest+".part" may remain.
func (t *Transferer) Save(ctx context.Context, url, dest string, overwrite bool) (Result, error) {
	res := Result{URL: url, Path: dest}

	exists, err := t.Exists(dest)
	if err != nil {
		return res, &TransferError{URL: url, Path: dest, Err: err}
	}
	if exists && !overwrite {
		t.logger.Debug("skipping existing file", "url", url, "path", dest)
		res.Skipped = true
		return res, nil
	}

	start := time.Now()
	resp, err := t.client.Get(ctx, url)
	if err != nil {
		if errors.Is(err, fetch.ErrFetch) {
			return res, err
		}
		return res, &fetch.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	part := dest + PartSuffix
	n, digest, err := t.stream(resp.Body, part)
	if err != nil {
		return res, &TransferError{URL: url, Path: dest, Err: err}
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return res, &TransferError{URL: url, Path: dest,
			Err: fmt.Errorf("short body: got %d of %d bytes: %w", n, resp.ContentLength, io.ErrUnexpectedEOF)}
	}

	if err := t.fs.Rename(part, dest); err != nil {
		return res, &TransferError{URL: url, Path: dest, Err: err}
	}

	res.Bytes = n
	res.Digest = digest
	res.Elapsed = time.Since(start)
	t.logger.Debug("saved file", "url", url, "path", dest, "bytes", n)
	return res, nil
}

// stream copies body into the part file, hashing as it goes.
func (t *Transferer) stream(body io.Reader, part string) (int64, string, error) {
	f, err := t.fs.OpenFile(part, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, "", err
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		_ = f.Close()
		return 0, "", err
	}

	buf := make([]byte, t.chunkSize)
	n, err := io.CopyBuffer(io.MultiWriter(f, h), onlyReader{body}, buf)
	if err != nil {
		_ = f.Close()
		return n, "", err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return n, "", err
	}
	if err := f.Close(); err != nil {
		return n, "", err
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

// onlyReader hides WriterTo/ReaderFrom so that CopyBuffer uses the
// bounded buffer.
type onlyReader struct {
	io.Reader
}
