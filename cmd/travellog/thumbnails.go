package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"travellog/internal/codec"
	"travellog/internal/config"
	"travellog/internal/database"
)

func newThumbnailsCmd() *cobra.Command {
	thumbs := &cobra.Command{
		Use:   "thumbnails",
		Short: "Thumbnail maintenance",
	}
	thumbs.AddCommand(&cobra.Command{
		Use:   "backfill",
		Short: "Generate missing thumbnails for stored locations",
		RunE:  runBackfill,
	})
	return thumbs
}

type backfillFailure struct {
	ID  int64
	Err error
}

func runBackfill(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	db, err := database.Open(cfg.Database.URL, database.Options{MaxOpenConns: cfg.Database.MaxOpenConns})
	if err != nil {
		return err
	}
	defer database.Close(db)

	ctx := cmd.Context()
	repo := database.NewLocationRepo(db)
	ids, err := repo.MissingThumbnails(ctx)
	if err != nil {
		return fmt.Errorf("list locations without thumbnails: %w", err)
	}

	if len(ids) == 0 {
		pterm.Success.Println("Every location already has a thumbnail.")
		return nil
	}

	imgCodec := codec.New(codec.Options{
		MaxEdge:          cfg.Image.MaxEdge,
		Quality:          cfg.Image.Quality,
		ThumbnailSize:    cfg.Image.ThumbnailSize,
		ThumbnailQuality: cfg.Image.ThumbnailQuality,
		MaxPixels:        cfg.Image.MaxPixels,
	})

	bar, _ := pterm.DefaultProgressbar.
		WithTotal(len(ids)).
		WithTitle("Generating thumbnails").
		WithShowCount(true).
		WithShowElapsedTime(true).
		Start()

	var failures []backfillFailure
	for _, id := range ids {
		if err := backfillOne(cmd, repo, imgCodec, id); err != nil {
			failures = append(failures, backfillFailure{ID: id, Err: err})
		}
		bar.Increment()
	}
	_, _ = bar.Stop()

	pterm.Println()
	if len(failures) == 0 {
		pterm.Success.Printf("Generated %d thumbnails.\n", len(ids))
		return nil
	}

	pterm.Warning.Printf("Generated %d of %d thumbnails.\n", len(ids)-len(failures), len(ids))
	for _, f := range failures {
		fmt.Printf(" - location %s: %v\n", color.RedString("%d", f.ID), f.Err)
	}
	return fmt.Errorf("%d thumbnails could not be generated", len(failures))
}

func backfillOne(cmd *cobra.Command, repo *database.LocationRepo, c *codec.Codec, id int64) error {
	ctx := cmd.Context()
	img, err := repo.GetImage(ctx, id)
	if err != nil {
		return err
	}
	thumb, err := c.Thumbnail(img.Data)
	if err != nil {
		return err
	}
	return repo.SetThumbnail(ctx, id, thumb)
}
