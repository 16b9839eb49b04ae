package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/nao1215/acsmirror/internal/burst"
	"github.com/nao1215/acsmirror/internal/metadata"
	"github.com/nao1215/acsmirror/internal/model"
)

// Mirror crawls a remote tree into a local directory.
// *crawler.Crawler satisfies it.
type Mirror interface {
	Run(ctx context.Context, rootURL, outputDir string) (*model.Summary, error)
	RunShells(ctx context.Context, shellsURL, outputDir string) (*model.Summary, error)
}

// CrawlStep mirrors the summary file tree.
type CrawlStep struct {
	mirror    Mirror
	rootURL   string
	outputDir string
}

// NewCrawlStep creates a step that mirrors rootURL into outputDir.
func NewCrawlStep(mirror Mirror, rootURL, outputDir string) *CrawlStep {
	return &CrawlStep{mirror: mirror, rootURL: rootURL, outputDir: outputDir}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do runs the crawl. The summary is kept even when the crawl fails.
func (s *CrawlStep) Do(ctx context.Context, state *State) error {
	summary, err := s.mirror.Run(ctx, s.rootURL, s.outputDir)
	if summary != nil {
		state.Summaries = append(state.Summaries, summary)
	}
	return err
}

// ShellsStep mirrors the table shells tree.
type ShellsStep struct {
	mirror    Mirror
	shellsURL string
	outputDir string
}

// NewShellsStep creates a step that mirrors shellsURL below outputDir.
func NewShellsStep(mirror Mirror, shellsURL, outputDir string) *ShellsStep {
	return &ShellsStep{mirror: mirror, shellsURL: shellsURL, outputDir: outputDir}
}

// Name returns the step name.
func (s *ShellsStep) Name() string {
	return "shells"
}

// Do runs the table shells crawl.
func (s *ShellsStep) Do(ctx context.Context, state *State) error {
	summary, err := s.mirror.RunShells(ctx, s.shellsURL, s.outputDir)
	if summary != nil {
		state.Summaries = append(state.Summaries, summary)
	}
	return err
}

// BurstStep unpacks downloaded table archives.
type BurstStep struct {
	burster *burst.Burster
	topDir  string
	rawDir  string
}

// NewBurstStep creates a step unpacking the archives under rawDir into
// topDir/acs.
func NewBurstStep(b *burst.Burster, topDir, rawDir string) *BurstStep {
	return &BurstStep{burster: b, topDir: topDir, rawDir: rawDir}
}

// Name returns the step name.
func (s *BurstStep) Name() string {
	return "burst"
}

// Do unpacks the archives.
func (s *BurstStep) Do(ctx context.Context, state *State) error {
	res, err := s.burster.Run(ctx, s.topDir, s.rawDir)
	if err != nil {
		return fmt.Errorf("burst: %w", err)
	}
	state.Burst = &res
	return nil
}

// AssembleStep builds the combined metadata file.
type AssembleStep struct {
	assembler *metadata.Assembler
	topDir    string
	output    string
}

// NewAssembleStep creates a step reading metadata files below topDir and
// writing the combined file to output.
func NewAssembleStep(a *metadata.Assembler, topDir, output string) *AssembleStep {
	return &AssembleStep{assembler: a, topDir: topDir, output: output}
}

// NewAssembleAfterBurstStep reads the directory a BurstStep with the same
// topDir writes to.
func NewAssembleAfterBurstStep(a *metadata.Assembler, topDir, output string) *AssembleStep {
	return NewAssembleStep(a, filepath.Join(topDir, burst.OutputDir), output)
}

// Name returns the step name.
func (s *AssembleStep) Name() string {
	return "assemble"
}

// Do writes the combined metadata file.
func (s *AssembleStep) Do(ctx context.Context, state *State) error {
	stats, err := s.assembler.AssembleTo(ctx, s.topDir, s.output)
	if err != nil {
		return fmt.Errorf("assemble: %w", err)
	}
	state.Assembly = &stats
	return nil
}
