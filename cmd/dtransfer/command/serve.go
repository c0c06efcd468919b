// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/momeni/dtransfer/pkg/adapter/metrics/prom"
	"github.com/momeni/dtransfer/pkg/adapter/restful/gin/routes"
	"github.com/momeni/dtransfer/pkg/core/log"
	"github.com/momeni/dtransfer/pkg/core/usecase/jobuc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST API for starting and querying transfers",
	Long: `Serve the REST API for starting and querying transfers
between the configured instances. One transfer job may run at a time.
The transfer stages metrics are exposed at the /metrics path.

A termination signal cancels the running transfer job (if any) and
stops the server after the in-flight requests are finished or the
configured shutdown timeout is elapsed.`,
	RunE: serve,
	Args: cobra.NoArgs,
}

func serve(_ *cobra.Command, _ []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := prom.MustNewMetrics(reg)
	jobs, err := jobuc.New(
		ctx, c.EngineFactory(metrics), c.Transfer.Options(),
	)
	if err != nil {
		return fmt.Errorf("creating jobs use case: %w", err)
	}
	defer jobs.Wait()

	v, hash := c.Server.TokenVerifier()
	if v == nil {
		log.Warn(ctx, "api token authentication is disabled")
	}
	e := c.Server.Gin.NewEngine()
	routes.Register(e, jobs, reg, v, hash)
	srv := &http.Server{Addr: c.Server.Address, Handler: e}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "serving", slog.String("address", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err = <-errCh:
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down", log.Valuer("timeout", c.Server.ShutdownTimeout))
	sctx, cancel := context.WithTimeout(
		context.Background(), c.Server.Timeout(),
	)
	defer cancel()
	if err = srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	if err = <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
