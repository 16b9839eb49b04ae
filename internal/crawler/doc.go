// Package crawler mirrors the ACS summary file and table shell trees.
//
// # Architecture
//
// A crawl is a depth-first walk over remote directory listings. Every
// step is a Task tagged with its Kind:
//
//   - KindRoot lists the published root and descends into each year.
//   - KindYearDir splits one year into its documentation and data branches.
//   - KindGenericFetch mirrors a directory tree, keeping files whose names
//     end in one of the task's extensions.
//   - KindRegionFetch selects region archives, region directories, file
//     template archives and by-state groupings.
//   - KindRegionLeaf keeps the payload files of one region directory.
//   - KindShellsRoot lists the table shells root and mirrors each year.
//
// Plan is the step function: given a Task and the listing fetched for it,
// it returns the ordered Actions (descend, download or skip) without any
// I/O. Crawler drives Plan with an explicit stack, fetching listings
// through a Lister and saving files through a Saver.
//
// # Failure handling
//
// A StructureError aborts the year it occurred in; the crawl continues
// with the next year. Fetch and transfer errors end the run. Because
// files are written through a temporary name and existing files are
// kept, re-running the crawl resumes where it stopped.
//
// # Usage
//
//	c := crawler.New(fs, parser, transferer, cfg.Settings(), crawler.WithLogger(logger))
//	summary, err := c.Run(ctx, cfg.BaseURL, cfg.OutputDir)
package crawler
