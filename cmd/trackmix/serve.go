package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/liuscraft/trackmix/internal/audio"
	"github.com/liuscraft/trackmix/internal/bridge"
	"github.com/liuscraft/trackmix/internal/logging"
	"github.com/liuscraft/trackmix/internal/playback"
	"github.com/spf13/cobra"
)

func newServeCommand(loadConfig configLoader) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 websocket bridge，为 webview 提供音频引擎",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			curve, err := audio.CurveByName(cfg.Gain.Curve)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			transport := bridge.NewRemoteTransport()
			engine := playback.New(playback.Options{
				Transport:    transport,
				Loader:       newLoader(cfg),
				Factory:      audio.PortaudioFactory(deviceConfig(cfg)),
				Curve:        curve,
				GainThrottle: cfg.Gain.Throttle(),
			})
			engineErr := make(chan error, 1)
			go func() { engineErr <- engine.Run(ctx) }()

			server := bridge.NewServer(engine, transport, bridge.Config{
				AllowedOrigins: cfg.Server.AllowedOrigins,
			})
			srv := &http.Server{
				Addr:        cfg.Server.Addr,
				Handler:     server.Router(),
				ReadTimeout: 15 * time.Second,
				IdleTimeout: 60 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logging.Warnf("Server: shutdown error: %v", err)
				}
			}()

			logging.Infof("Server: listening on %s", cfg.Server.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				stop()
				engine.Stop()
				return err
			}

			stop()
			engine.Stop()
			if err := <-engineErr; err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logging.Infof("Server: stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "监听地址，覆盖配置中的 server.addr")
	return cmd
}
