package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ajujo/teaching-system/internal/server"
	"github.com/ajujo/teaching-system/internal/stream"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve tutoring sessions over HTTP with an event stream per session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := newRuntime(ctx, cmd, "")
		if err != nil {
			return err
		}
		defer rt.Close()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = rt.cfg.HTTPAddr
		}
		origins, _ := cmd.Flags().GetStringSlice("allow-origin")

		hub := stream.NewHub(rt.engine, stream.Options{
			Buffer:     rt.cfg.EventBuffer,
			SessionTTL: rt.cfg.SessionTTL,
		}, rt.log)
		srv := server.New(server.Options{
			Hub:          hub,
			Personas:     rt.personas,
			Students:     rt.students,
			Log:          rt.log,
			IdleInterval: rt.cfg.IdleInterval,
			AllowOrigins: origins,
		})

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return hub.Run(gctx)
		})
		g.Go(func() error {
			return srv.Run(gctx, addr)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides TUTOR_HTTP_ADDR)")
	serveCmd.Flags().StringSlice("allow-origin", nil, "Browser origin allowed by CORS (repeatable)")
}
