// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command kvember runs the RESP2 key-value server: one TCP listener
// accepting connections, each served by its own conn.Connection, plus an
// optional Prometheus metrics endpoint.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	_ "go.uber.org/automaxprocs"

	"code.hybscloud.com/kvember/internal/conn"
	"code.hybscloud.com/kvember/internal/config"
	"code.hybscloud.com/kvember/internal/logging"
	"code.hybscloud.com/kvember/internal/metrics"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "kvember: failed to load configuration:", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel)
	m := metrics.New()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, m, log)
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.ListenAddr).Msg("failed to bind listener")
	}
	log.Info().Str("addr", cfg.ListenAddr).Msg("kvember listening")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		_ = ln.Close()
	}()

	acceptLoop(ln, cfg, log, m)
}

// acceptLoop admits new connections up to cfg.MaxConnections concurrently
// and at most cfg.AcceptRatePerSecond per second, guarding already-admitted
// connections' scheduler share against a sudden connection storm.
func acceptLoop(ln net.Listener, cfg config.Config, log zerolog.Logger, m *metrics.Metrics) {
	limiter := rate.NewLimiter(rate.Limit(cfg.AcceptRatePerSecond), cfg.AcceptRatePerSecond)
	active := make(chan struct{}, maxOrDefault(cfg.MaxConnections))

	opts := conn.Options{
		QueueDepth:    maxOrDefault(cfg.QueueDepth),
		AccInitialCap: maxOrDefault(cfg.AccumulatorInitialCap),
		AccMaxCap:     cfg.AccumulatorMaxCap,
	}

	for {
		nc, err := ln.Accept()
		if err != nil {
			log.Debug().Err(err).Msg("accept loop exiting")
			return
		}
		if err := limiter.Wait(context.Background()); err != nil {
			_ = nc.Close()
			continue
		}

		select {
		case active <- struct{}{}:
		default:
			log.Warn().Msg("max connections reached, rejecting")
			_ = nc.Close()
			continue
		}

		m.ConnectionsAccepted.Inc()
		m.ConnectionsActive.Inc()
		connLog := log.With().Str("remote", nc.RemoteAddr().String()).Logger()

		go func() {
			defer func() {
				<-active
				m.ConnectionsActive.Dec()
			}()
			c := conn.New(nc, opts, connLog, m)
			c.Serve()
		}()
	}
}

func maxOrDefault(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func serveMetrics(addr string, m *metrics.Metrics, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Warn().Err(err).Msg("metrics server exited")
	}
}
