package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/edumarques81/kodi-nowplaying-backend/internal/domain/nowplaying"
)

// fetchOutput is the snapshot plus the artwork failures it hides from JSON.
type fetchOutput struct {
	*nowplaying.Snapshot
	Failures map[string]string `json:"failures,omitempty"`
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Render the playing item once and print it as JSON",
	Long: `fetch runs a single artwork pass for the item Kodi is playing, leaves the
downloaded files in the cache directory and prints the snapshot, including every
artwork failure, as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		snap, err := a.service.Render(ctx)
		if err != nil {
			return fmt.Errorf("render now playing: %w", err)
		}

		out := fetchOutput{Snapshot: snap}
		if snap.Artwork != nil {
			out.Failures = snap.Artwork.Failures
			log.Debug().Int("files", len(snap.Artwork.Files())).Int("failures", len(snap.Artwork.Failures)).Msg("Artwork pass finished")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}
