package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/nao1215/acsmirror/internal/classify"
	"github.com/nao1215/acsmirror/internal/config"
	"github.com/nao1215/acsmirror/internal/listing"
	"github.com/nao1215/acsmirror/internal/model"
	"github.com/nao1215/acsmirror/internal/transfer"
)

// Lister fetches the listing of a remote directory.
type Lister interface {
	Links(ctx context.Context, url string, restrictToTable bool) (listing.Listing, error)
}

// Saver saves a remote file to a local path.
type Saver interface {
	Save(ctx context.Context, url, dest string, overwrite bool) (transfer.Result, error)
}

// Recorder observes a run. The manifest database implements it.
type Recorder interface {
	BeginRun(ctx context.Context, run model.Run) error
	RecordTransfer(ctx context.Context, runID string, t model.Transfer) error
	RecordStructureIssue(ctx context.Context, runID string, issue model.StructureIssue) error
	FinishRun(ctx context.Context, run model.Run) error
}

// Crawler walks a remote tree and mirrors the accepted subset of it.
// A Crawler is not safe for concurrent use; each Run is sequential.
type Crawler struct {
	fs        afero.Fs
	lister    Lister
	saver     Saver
	settings  config.Settings
	matcher   classify.RegionMatcher
	logger    *slog.Logger
	recorder  Recorder
	overwrite bool
	now       func() time.Time
	newID     func() string
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// WithRecorder sets the observer notified of every transfer and
// structure issue.
func WithRecorder(r Recorder) Option {
	return func(c *Crawler) {
		c.recorder = r
	}
}

// WithOverwrite replaces files that already exist locally.
func WithOverwrite(overwrite bool) Option {
	return func(c *Crawler) {
		c.overwrite = overwrite
	}
}

// WithClock sets the time source used for records.
func WithClock(now func() time.Time) Option {
	return func(c *Crawler) {
		c.now = now
	}
}

// New creates a Crawler writing to fs.
func New(fs afero.Fs, lister Lister, saver Saver, settings config.Settings, opts ...Option) *Crawler {
	c := &Crawler{
		fs:       fs,
		lister:   lister,
		saver:    saver,
		settings: settings,
		matcher:  classify.NewRegionMatcher(settings.HasRegion, settings.TractsAndBlockGroups()),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run mirrors the summary file tree at rootURL into outputDir.
// The returned Summary is valid even when err is non-nil.
func (c *Crawler) Run(ctx context.Context, rootURL, outputDir string) (*model.Summary, error) {
	root := Task{Kind: KindRoot, URL: rootURL, Dir: outputDir}
	return c.run(ctx, model.RunKindSummaryFile, root)
}

// RunShells mirrors the table shells tree at shellsURL into
// outputDir/table_shells.
func (c *Crawler) RunShells(ctx context.Context, shellsURL, outputDir string) (*model.Summary, error) {
	root := Task{Kind: KindShellsRoot, URL: shellsURL, Dir: filepath.Join(outputDir, ShellsDir)}
	return c.run(ctx, model.RunKindTableShells, root)
}

func (c *Crawler) run(ctx context.Context, kind model.RunKind, root Task) (*model.Summary, error) {
	summary := &model.Summary{
		Run: model.Run{
			ID:      c.newID(),
			Kind:    kind,
			RootURL: root.URL,
			Started: c.now(),
			Status:  model.RunStatusRunning,
		},
	}
	if c.recorder != nil {
		if err := c.recorder.BeginRun(ctx, summary.Run); err != nil {
			return summary, fmt.Errorf("failed to record run start: %w", err)
		}
	}

	c.logger.Info("crawl started", "run", summary.Run.ID, "kind", kind, "url", root.URL, "dir", root.Dir)
	err := c.walk(ctx, root, summary)

	summary.Run.Finished = c.now()
	switch {
	case err == nil:
		summary.Run.Status = model.RunStatusSucceeded
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		summary.Run.Status = model.RunStatusCanceled
		summary.Run.Error = err.Error()
	default:
		summary.Run.Status = model.RunStatusFailed
		summary.Run.Error = err.Error()
	}

	if c.recorder != nil {
		// The run context may already be canceled; the outcome is still
		// worth recording.
		if rerr := c.recorder.FinishRun(context.WithoutCancel(ctx), summary.Run); rerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to record run outcome: %w", rerr))
		}
	}

	c.logger.Info("crawl finished",
		"run", summary.Run.ID,
		"status", summary.Run.Status,
		"downloaded", summary.Downloaded,
		"existing", summary.Existing,
		"structure_issues", len(summary.StructureIssues),
		"elapsed", summary.Elapsed(),
	)
	return summary, err
}

// walk executes root and everything below it depth first. The stack holds
// pending actions; the actions of one task are pushed in reverse so that
// they pop in Plan order.
func (c *Crawler) walk(ctx context.Context, root Task, summary *model.Summary) error {
	stack := []Action{{Kind: ActionDescend, Task: root}}
	visited := make(map[string]bool)

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		a := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch a.Kind {
		case ActionDownload:
			if err := c.save(ctx, a, summary); err != nil {
				return err
			}
		case ActionDescend:
			if visited[a.Task.URL] {
				c.logger.Debug("already visited", "url", a.Task.URL)
				continue
			}
			visited[a.Task.URL] = true
			if a.Role == classify.RoleYear {
				summary.Years = append(summary.Years, a.Year)
			}

			actions, err := c.visit(ctx, a.Task, summary)
			if err != nil {
				if !errors.Is(err, listing.ErrStructure) || a.Task.Year == "" {
					return err
				}
				if err := c.structureIssue(ctx, a.Task, err, summary); err != nil {
					return err
				}
				stack = dropYear(stack, a.Task.Year)
				continue
			}
			for i := len(actions) - 1; i >= 0; i-- {
				if actions[i].Kind != ActionSkip {
					stack = append(stack, actions[i])
				}
			}
		}
	}
	return nil
}

// visit creates the local directory of t, fetches its listing and plans it.
func (c *Crawler) visit(ctx context.Context, t Task, summary *model.Summary) ([]Action, error) {
	if err := c.ensureDir(t.Dir, summary); err != nil {
		return nil, err
	}
	c.logger.Info("listing", "kind", t.Kind, "url", t.URL, "dir", t.Dir)
	l, err := c.lister.Links(ctx, t.URL, true)
	if err != nil {
		return nil, err
	}
	summary.Listings++

	actions, err := c.Plan(t, l)
	if err != nil {
		return nil, err
	}
	for _, a := range actions {
		if a.Kind != ActionSkip {
			continue
		}
		if a.Err != nil {
			if errors.Is(a.Err, classify.ErrAmbiguousRegion) {
				summary.Ambiguous++
			}
			c.logger.Warn("entry skipped", "url", t.URL, "label", a.Link.Label, "error", a.Err)
			continue
		}
		summary.Ignored++
		c.logger.Debug("entry skipped", "url", t.URL, "label", a.Link.Label, "role", a.Role, "reason", a.Reason)
	}
	return actions, nil
}

func (c *Crawler) save(ctx context.Context, a Action, summary *model.Summary) error {
	if err := c.ensureDir(filepath.Dir(a.Path), summary); err != nil {
		return err
	}

	res, err := c.saver.Save(ctx, a.URL, a.Path, c.overwrite)
	if err != nil {
		c.logger.Error("transfer failed", "url", a.URL, "path", a.Path, "role", a.Role, "error", err)
		return err
	}

	t := model.Transfer{
		URL:     a.URL,
		Path:    a.Path,
		Role:    a.Role.String(),
		Year:    a.Year,
		Skipped: res.Skipped,
		Bytes:   res.Bytes,
		Digest:  res.Digest,
		At:      c.now(),
	}
	summary.AddTransfer(t)
	if res.Skipped {
		c.logger.Debug("exists", "path", a.Path)
	} else {
		c.logger.Info("downloaded", "url", a.URL, "path", a.Path, "bytes", res.Bytes, "elapsed", res.Elapsed)
	}

	if c.recorder != nil {
		if err := c.recorder.RecordTransfer(ctx, summary.Run.ID, t); err != nil {
			return fmt.Errorf("failed to record transfer of %s: %w", a.URL, err)
		}
	}
	return nil
}

func (c *Crawler) structureIssue(ctx context.Context, t Task, err error, summary *model.Summary) error {
	issue := model.StructureIssue{URL: t.URL, Year: t.Year, Message: err.Error(), At: c.now()}
	summary.StructureIssues = append(summary.StructureIssues, issue)
	c.logger.Warn("year abandoned", "year", t.Year, "url", t.URL, "kind", t.Kind, "error", err)

	if c.recorder != nil {
		if rerr := c.recorder.RecordStructureIssue(ctx, summary.Run.ID, issue); rerr != nil {
			return fmt.Errorf("failed to record structure issue: %w", rerr)
		}
	}
	return nil
}

// ensureDir creates dir if it does not exist yet.
func (c *Crawler) ensureDir(dir string, summary *model.Summary) error {
	exists, err := afero.DirExists(c.fs, dir)
	if err != nil {
		return fmt.Errorf("failed to check directory %s: %w", dir, err)
	}
	if exists {
		return nil
	}
	if err := c.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	summary.DirsCreated++
	return nil
}

// dropYear removes the pending actions of year from the top of the stack.
// A depth-first walk keeps them contiguous.
func dropYear(stack []Action, year string) []Action {
	for len(stack) > 0 && stack[len(stack)-1].Year == year {
		stack = stack[:len(stack)-1]
	}
	return stack
}
