package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/spotigest/internal/formatter"
	"github.com/desertthunder/spotigest/internal/shared"
)

// Devices lists the Spotify Connect devices the account can control.
func (r *Runner) Devices(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}
	if err := r.session.Reset(); err != nil {
		return fmt.Errorf("%w: run 'spotigest auth login' first", err)
	}

	devices, err := r.spotify.Devices(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(devices, cmd.Bool("pretty"))
	}

	_, err = r.output.Write(formatter.DevicesToText(devices))
	return err
}
