package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/castcopy/internal/config"
)

func settingsCapture(out *config.Settings) *cli.Command {
	return &cli.Command{
		Name: "capture-settings",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := loadSettings(cmd)
			*out = s
			return err
		},
	}
}
