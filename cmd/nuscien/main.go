// Command nuscien corre el servidor de identidad y las tareas de administración.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/nuscien/internal/app"
	"github.com/dropDatabas3/nuscien/internal/config"
	"github.com/dropDatabas3/nuscien/internal/observability/logger"
)

type globals struct {
	configPath string
	envFile    string
	cfg        *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "nuscien",
		Short:         "Servidor de identidad, tokens y permisos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env es opcional
			if err := godotenv.Load(g.envFile); err != nil && g.envFile != ".env" {
				return fmt.Errorf("load %s: %w", g.envFile, err)
			}
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			g.cfg = cfg
			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.Log.Level,
				ServiceName: "nuscien",
				Version:     app.Version,
			})
			cmd.SetContext(logger.ToContext(cmd.Context(), logger.L()))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", os.Getenv("NUSCIEN_CONFIG"), "YAML de configuración (env NUSCIEN_CONFIG)")
	root.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "archivo .env a cargar")

	root.AddCommand(
		newServeCmd(g),
		newMigrateCmd(g),
		newUserCmd(g),
		newClientCmd(g),
		newPermissionCmd(g),
		newTokenCmd(g),
	)
	return root
}

// withContainer arma el container, corre fn y lo cierra.
func withContainer(cmd *cobra.Command, g *globals, fn func(ctx context.Context, c *app.Container) error) error {
	ctx := cmd.Context()
	c, err := app.Build(ctx, g.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.From(ctx).Warn("close failed", logger.Err(err))
		}
	}()
	return fn(ctx, c)
}
