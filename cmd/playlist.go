package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/hyde/internal/formatter"
	"github.com/desertthunder/hyde/internal/shared"
	"github.com/desertthunder/hyde/internal/tasks"
	"github.com/desertthunder/hyde/internal/ui"
	"github.com/urfave/cli/v3"
)

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(cmd.StringArg(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", shared.ErrMissingArgument, name)
	}
	return v, nil
}

// PlaylistList prints every playlist in the store.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	list := store.List()

	if cmd.Bool("json") {
		return r.writeJSON(list, cmd.Bool("pretty"))
	}
	if len(list) == 0 {
		return r.writePlain("%s\n", ui.Warn("No playlists yet. Create one with 'hyde playlist create <name>'"))
	}
	r.writePlainHeader(fmt.Sprintf("Playlists (%d)", len(list)))
	for _, s := range list {
		r.writePlain("%s\n", ui.Playlist(s))
	}
	return nil
}

// PlaylistShow prints one playlist with its tracks.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}
	store, err := r.openStore()
	if err != nil {
		return err
	}
	p, err := store.Get(name)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(p, cmd.Bool("pretty"))
	}
	r.writePlainHeader(p.Name)
	r.writePlain("%s\n\n", ui.Help(fmt.Sprintf("%d tracks, %s total", len(p.Tracks), formatter.FormatDuration(formatter.TotalDuration(p)))))
	return r.writePlain("%s\n", ui.Tracks(p.Tracks))
}

func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}
	store, err := r.openStore()
	if err != nil {
		return err
	}
	p, err := store.Create(name)
	if err != nil {
		return err
	}
	r.logger.Debug("playlist created", "name", p.Name, "path", store.Path())
	return r.writePlain("%s Created playlist %s\n", ui.Success("✓"), p.Name)
}

// PlaylistAdd searches for query and adds the best match to the playlist.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}
	query, err := requireArg(cmd, "query")
	if err != nil {
		return err
	}
	store, err := r.openStore()
	if err != nil {
		return err
	}
	if _, err := store.Get(name); err != nil {
		return err
	}

	tracks, err := r.searchTracks(ctx, query, 1)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return fmt.Errorf("%w: no results for %q", shared.ErrInvalidInput, query)
	}

	track := tracks[0]
	_, added, err := store.AddTrack(name, track)
	if err != nil {
		return err
	}
	if !added {
		return r.writePlain("%s %s is already in %s\n", ui.Warn("!"), track.Name, name)
	}
	return r.writePlain("%s Added %s\n", ui.Success("✓"), ui.Track(1, track))
}

func (r *Runner) PlaylistRemove(ctx context.Context, cmd *cli.Command) error {
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}
	id, err := requireArg(cmd, "youtube-id")
	if err != nil {
		return err
	}
	store, err := r.openStore()
	if err != nil {
		return err
	}
	removed, err := store.RemoveTrack(name, id)
	if err != nil {
		return err
	}
	if !removed {
		return r.writePlain("%s Track not in playlist\n", ui.Warn("!"))
	}
	return r.writePlain("%s Removed %s from %s\n", ui.Success("✓"), id, name)
}

func (r *Runner) PlaylistDelete(ctx context.Context, cmd *cli.Command) error {
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}
	store, err := r.openStore()
	if err != nil {
		return err
	}
	if err := store.Delete(name); err != nil {
		return err
	}
	return r.writePlain("%s Deleted playlist %s\n", ui.Success("✓"), name)
}

// PlaylistExport writes the named playlists (all of them when none are named) to disk.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	names := cmd.Args().Slice()
	if len(names) == 0 {
		for _, s := range store.List() {
			names = append(names, s.Name)
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("%w: no playlists to export", shared.ErrMissingArgument)
	}

	opts := tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		Covers:     cmd.Bool("covers"),
	}

	progress := make(chan tasks.ProgressUpdate, len(names))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			r.writePlain("%s\n", ui.Progress(u))
		}
	}()

	result, err := tasks.ExportPlaylists(ctx, store, names, opts, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlainln("%s Exported %d/%d playlists to %s",
		ui.Success("✓"), result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	for _, res := range result.Results {
		if !res.Success {
			r.writePlain("%s %s: %v\n", ui.Error("✗"), res.PlaylistName, res.Error)
		}
	}
	if result.FailedExports > 0 {
		return fmt.Errorf("%d of %d exports failed", result.FailedExports, result.TotalPlaylists)
	}
	return nil
}
