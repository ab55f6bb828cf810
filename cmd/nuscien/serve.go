package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/nuscien/internal/app"
	nhttp "github.com/dropDatabas3/nuscien/internal/http"
	"github.com/dropDatabas3/nuscien/internal/observability/logger"
)

func newServeCmd(g *globals) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, g, func(ctx context.Context, c *app.Container) error {
				if migrate {
					if err := c.Migrate(ctx); err != nil {
						return err
					}
				}
				h, err := c.Handler()
				if err != nil {
					return err
				}
				logger.From(ctx).Info("starting",
					logger.String("addr", g.cfg.Server.Addr),
					logger.String("env", g.cfg.App.Env),
				)
				return nhttp.NewServer(g.cfg.Server.Addr, h).Run(ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "crear el schema antes de arrancar")
	return cmd
}

func newMigrateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Crea o actualiza el schema del store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, g, func(ctx context.Context, c *app.Container) error {
				if err := c.Migrate(ctx); err != nil {
					return err
				}
				cmd.Printf("schema ok (%s)\n", c.Conn.Name())
				return nil
			})
		},
	}
}
