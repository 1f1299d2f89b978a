package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/monthlify/internal/formatter"
	"github.com/desertthunder/monthlify/internal/models"
	"github.com/desertthunder/monthlify/internal/shared"
	"github.com/desertthunder/monthlify/internal/tasks"
	"github.com/urfave/cli/v3"
)

// sourceFromFlags reads exactly one of --id and --url.
func sourceFromFlags(cmd *cli.Command) (models.SourceIdentifier, error) {
	id, link := cmd.String("id"), cmd.String("url")
	switch {
	case id == "" && link == "":
		return models.SourceIdentifier{}, fmt.Errorf("%w: one of --id or --url is required", shared.ErrMissingArgument)
	case id != "" && link != "":
		return models.SourceIdentifier{}, fmt.Errorf("%w: cannot specify both --id and --url", shared.ErrInvalidArgument)
	case id != "":
		return models.NewSourceIdentifier(id, string(models.KindID))
	default:
		return models.NewSourceIdentifier(link, string(models.KindURL))
	}
}

// Preview groups the source playlist by month and prints the result.
func (r *Runner) Preview(ctx context.Context, cmd *cli.Command) error {
	src, err := sourceFromFlags(cmd)
	if err != nil {
		return err
	}

	partitions, err := r.preview(ctx, cmd, src, nil)
	if err != nil {
		return err
	}

	if path := cmd.String("csv"); path != "" {
		written, err := formatter.WriteCSVPreview(partitions, path)
		if err != nil {
			return err
		}
		r.logger.Info("preview written", "file", written)
	}

	if dir := cmd.String("output"); dir != "" {
		result, err := formatter.WriteMarkdownPreview(src.Value, partitions, dir, r.covers)
		if err != nil {
			return err
		}
		r.logger.Info("preview written", "dir", result.Directory, "covers", len(result.Covers))
		return r.writePlain("✓ Preview written to %s\n", result.Directory)
	}

	switch {
	case cmd.Bool("json"):
		return r.writeJSON(partitions, true)
	case cmd.Bool("markdown"):
		return r.writeBytes(formatter.PreviewToMarkdown(src.Value, partitions, nil))
	default:
		return r.writeBytes(formatter.PreviewToText(src.Value, partitions))
	}
}

// Create previews the source, asks for confirmation unless --yes is set, then materializes every month.
func (r *Runner) Create(ctx context.Context, cmd *cli.Command) error {
	src, err := sourceFromFlags(cmd)
	if err != nil {
		return err
	}

	recorder, closeDB := r.recorder()
	defer closeDB()

	partitions, err := r.preview(ctx, cmd, src, recorder)
	if err != nil {
		return err
	}

	r.writeBytes(formatter.PreviewToText(src.Value, partitions))
	if len(partitions) == 0 {
		return nil
	}

	if !cmd.Bool("yes") && !r.confirm(fmt.Sprintf("\nCreate %d monthly playlists?", len(partitions))) {
		return r.writePlain("Aborted.\n")
	}

	progress := make(chan tasks.ProgressUpdate, 32)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()

	backend, err := r.localBackend(ctx, recorder, progress)
	if err != nil {
		close(progress)
		wg.Wait()
		return err
	}

	results, err := backend.CreateMonthlyPlaylists(ctx, src, partitions)
	close(progress)
	wg.Wait()

	if err != nil {
		if len(results) > 0 {
			r.writePlainln("Processed before the failure:")
			r.writeBytes(formatter.ResultsToText(results))
		}
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(results, true)
	}

	r.writePlainln("✓ Playlists processed successfully")
	return r.writeBytes(formatter.ResultsToText(results))
}

// preview runs the local month partitioning, reauthorizing once when the stored token is rejected.
func (r *Runner) preview(ctx context.Context, cmd *cli.Command, src models.SourceIdentifier, recorder tasks.Recorder) ([]models.PartitionPreview, error) {
	backend, err := r.localBackend(ctx, recorder, nil)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("previewing source", "source", src)

	partitions, err := backend.Preview(ctx, src)
	if err == nil {
		return partitions, nil
	}

	reauthed, authErr := r.handleSpotifyAuthError(ctx, err, cmd)
	if !reauthed {
		return nil, err
	}
	if authErr != nil {
		return nil, authErr
	}

	if backend, err = r.localBackend(ctx, recorder, nil); err != nil {
		return nil, err
	}
	return backend.Preview(ctx, src)
}
