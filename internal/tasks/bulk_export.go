package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/hyde/internal/formatter"
	"github.com/desertthunder/hyde/internal/models"
	"github.com/desertthunder/hyde/internal/shared"
	"golang.org/x/time/rate"
)

// PlaylistSource reads playlists by name. [repositories.PlaylistStore] satisfies it.
type PlaylistSource interface {
	Get(name string) (*models.PlaylistRecord, error)
}

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     string  // Export format: json, csv, markdown, txt
	OutputDir  string  // Base output directory (default: hyde_export_{epoch})
	NumWorkers int     // Concurrent workers, clamped to 5-8
	RateLimit  float64 // Playlists started per second (default: 5); bounds cover downloads
	Covers     bool    // Download cover images for markdown exports
}

// PlaylistExportResult is the outcome of exporting one playlist.
type PlaylistExportResult struct {
	PlaylistName string
	Success      bool
	Files        []string
	Error        error
}

// BulkExportResult summarizes a bulk export. Results are in the order the names were given.
type BulkExportResult struct {
	TotalPlaylists    int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []PlaylistExportResult
}

type exportJob struct {
	index    int
	name     string
	base     string
	playlist *models.PlaylistRecord
}

type indexedExport struct {
	index int
	PlaylistExportResult
}

// ExportPlaylists writes each named playlist to opts.OutputDir using a worker pool and records a manifest.
//
// Missing playlists and failed writes are reported per playlist and do not stop the run.
func ExportPlaylists(
	ctx context.Context,
	source PlaylistSource,
	names []string,
	opts BulkExportOpts,
	prog chan<- ProgressUpdate,
) (*BulkExportResult, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: playlist store not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Format == "" {
		opts.Format = "json"
	}
	if !slices.Contains(formatter.Formats, opts.Format) {
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("hyde_export_%d", time.Now().Unix())
	}
	opts.NumWorkers = shared.ClampWorkers(opts.NumWorkers)
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalPlaylists:  len(names),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, len(names)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan exportJob, len(names))
	results := make(chan indexedExport, len(names))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		bases := make(map[string]int, len(names))
		for i, name := range names {
			if err := limiter.Wait(ctx); err != nil {
				for j := i; j < len(names); j++ {
					results <- failedExport(j, names[j], err)
				}
				return
			}

			p, err := source.Get(name)
			if err != nil {
				results <- failedExport(i, name, err)
				continue
			}

			jobs <- exportJob{index: i, name: name, base: uniqueBase(bases, formatter.Slug(name)), playlist: p}
			sendProgress(prog, exportingPlaylistUpdate(i+1, len(names), name))
		}
	}()

	go func() {
		wg.Wait()
		// Every job is consumed before the workers exit, so the dispatcher is done sending too.
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results[res.index] = res.PlaylistExportResult
		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(completed, len(names), res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			sendProgress(prog, exportFailedUpdate(completed, len(names), res.PlaylistName, res.Error))
		}
	}

	manifest := &formatter.Manifest{
		Format:         opts.Format,
		ExportedAt:     time.Now().UTC(),
		TotalPlaylists: len(names),
	}
	for _, r := range result.Results {
		manifest.Add(r.PlaylistName, r.Files, r.Error)
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(manifest, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker is a worker goroutine that exports playlists from the jobs channel.
func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan exportJob,
	results chan<- indexedExport,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if err := ctx.Err(); err != nil {
			results <- failedExport(job.index, job.name, err)
			continue
		}
		results <- indexedExport{index: job.index, PlaylistExportResult: exportSinglePlaylist(ctx, job, opts)}
	}
}

// exportSinglePlaylist exports a single playlist to the requested format.
func exportSinglePlaylist(ctx context.Context, j exportJob, opts BulkExportOpts) PlaylistExportResult {
	result := PlaylistExportResult{
		PlaylistName: j.name,
		Files:        []string{},
	}

	switch opts.Format {
	case "csv":
		csvRes, err := formatter.WriteCSVExport(j.playlist, filepath.Join(opts.OutputDir, j.base))
		if err != nil {
			result.Error = fmt.Errorf("CSV export failed: %w", err)
			return result
		}
		result.Files = []string{csvRes.TracksFile, csvRes.MetadataFile}

	case "markdown":
		var imageURL string
		if opts.Covers && j.playlist.Cover != nil {
			imageURL = *j.playlist.Cover
		}
		mdRes, err := formatter.WriteMarkdownExport(ctx, j.playlist, filepath.Join(opts.OutputDir, j.base), imageURL)
		if err != nil {
			result.Error = fmt.Errorf("markdown export failed: %w", err)
			return result
		}
		result.Files = mdRes.Files

	case "txt":
		path, err := formatter.WriteTextExport(j.playlist, filepath.Join(opts.OutputDir, j.base+"_tracks.txt"))
		if err != nil {
			result.Error = fmt.Errorf("text export failed: %w", err)
			return result
		}
		result.Files = []string{path}

	default:
		path, err := formatter.WriteJSONExport(j.playlist, filepath.Join(opts.OutputDir, j.base+".json"))
		if err != nil {
			result.Error = fmt.Errorf("JSON export failed: %w", err)
			return result
		}
		result.Files = []string{path}
	}

	result.Success = true
	return result
}

func failedExport(index int, name string, err error) indexedExport {
	return indexedExport{
		index:                index,
		PlaylistExportResult: PlaylistExportResult{PlaylistName: name, Error: err},
	}
}

// uniqueBase disambiguates names that slug to the same file name ("Chill" and "chill").
func uniqueBase(seen map[string]int, base string) string {
	seen[base]++
	if n := seen[base]; n > 1 {
		return fmt.Sprintf("%s-%d", base, n)
	}
	return base
}
