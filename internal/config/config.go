// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads kvember's runtime configuration from environment
// variables, following the struct-tag convention the rest of the corpus
// uses for its servers.
package config

import "github.com/caarlos0/env/v11"

// Config holds every runtime-tunable knob the core's contracts leave as
// an operational decision rather than a specified behavior (§6, §9).
type Config struct {
	// ListenAddr is the TCP address the RESP server binds. The core
	// design's default is 0.0.0.0:6379 (§6); overriding it is explicitly
	// out of the core's scope and lives here instead.
	ListenAddr string `env:"KVEMBER_LISTEN_ADDR" envDefault:"0.0.0.0:6379"`

	// MetricsAddr is the address the Prometheus /metrics endpoint binds.
	// Empty disables the metrics listener.
	MetricsAddr string `env:"KVEMBER_METRICS_ADDR" envDefault:":9121"`

	// MaxConnections caps concurrently served connections; beyond it the
	// accept loop closes each newly accepted connection immediately until
	// one of the served connections closes.
	MaxConnections int `env:"KVEMBER_MAX_CONNECTIONS" envDefault:"10000"`

	// AcceptRatePerSecond bounds how many new connections per second the
	// accept loop admits, guarding already-admitted connections from a
	// connection-storm starving them of scheduler time.
	AcceptRatePerSecond int `env:"KVEMBER_ACCEPT_RATE" envDefault:"2000"`

	// QueueDepth is the bounded per-connection response queue between
	// the reader and writer goroutines (§4.5/§5). When full, the reader
	// suspends — this is the core's only backpressure mechanism.
	QueueDepth int `env:"KVEMBER_QUEUE_DEPTH" envDefault:"256"`

	// AccumulatorInitialCap is the read accumulator's starting backing
	// array size, in bytes.
	AccumulatorInitialCap int `env:"KVEMBER_ACC_INITIAL_CAP" envDefault:"4096"`

	// AccumulatorMaxCap bounds how large a single connection's read
	// accumulator may grow, in bytes; 0 means unbounded. This is the
	// operational equivalent of the resource-exhaustion error kind in §7.
	AccumulatorMaxCap int `env:"KVEMBER_ACC_MAX_CAP" envDefault:"67108864"`

	// LogLevel is a zerolog level name: debug, info, warn, error.
	LogLevel string `env:"KVEMBER_LOG_LEVEL" envDefault:"info"`
}

// Load reads Config from environment variables, applying envDefault tags
// for anything unset.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}
