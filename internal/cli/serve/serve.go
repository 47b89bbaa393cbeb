package serve

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/volatility/internal/cli/config"
	"github.com/rustyeddy/volatility/internal/metrics"
	"github.com/rustyeddy/volatility/internal/server"
)

// New returns the serve command.
func New(rc *config.RootConfig) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the volatility web dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rc.Config()
			if addr != "" {
				cfg.Server.Addr = addr
			}
			read, write, err := cfg.Server.Timeouts()
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			m := metrics.New(reg)

			p, closeSource, err := rc.Pipeline(m)
			if err != nil {
				return err
			}
			defer closeSource()

			scfg := server.DefaultConfig()
			scfg.Addr = cfg.Server.Addr
			if read > 0 {
				scfg.ReadTimeout = read
			}
			if write > 0 {
				scfg.WriteTimeout = write
			}

			srv, err := server.New(scfg, p, reg, m)
			if err != nil {
				return err
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			select {
			case <-quit:
				log.Info().Msg("shutdown signal received")
			case err := <-serverErr:
				return err
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")

	return cmd
}
