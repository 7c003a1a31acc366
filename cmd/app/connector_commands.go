package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/connectors/cmd/app/commands"
	"github.com/allisson/connectors/internal/app"
	"github.com/allisson/connectors/internal/config"
)

func getConnectorCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "refresh-credentials",
			Usage: "Refresh every connector credential that is close to expiry",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				lifecycle, err := container.LifecycleUseCase()
				if err != nil {
					return err
				}

				return commands.RunRefreshCredentials(
					ctx,
					lifecycle,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "verify-audit-events",
			Usage: "Verify the signatures of a tenant's audit events",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "tenant-id",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Tenant whose audit trail is verified",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				eventUseCase, err := container.EventUseCase()
				if err != nil {
					return err
				}

				return commands.RunVerifyAuditEvents(
					ctx,
					eventUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("tenant-id"),
					cmd.String("format"),
				)
			},
		},
	}
}
