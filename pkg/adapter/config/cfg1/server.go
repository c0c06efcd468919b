// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cfg1

import (
	"fmt"
	"io"
	"time"

	"github.com/momeni/dtransfer/pkg/adapter/config/settings"
	"github.com/momeni/dtransfer/pkg/adapter/hash/scram"
	"github.com/momeni/dtransfer/pkg/adapter/restful/gin"
	"github.com/momeni/dtransfer/pkg/core/log"
	scrami "github.com/momeni/dtransfer/pkg/core/scram"
)

// Log contains the structured logging settings.
type Log struct {
	Level  string `yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format string `yaml:"format,omitempty" validate:"omitempty,oneof=text json"`
}

func (l *Log) normalize() {
	if l.Level == "" {
		l.Level = DefaultLogLevel
	}
	if l.Format == "" {
		l.Format = DefaultLogFormat
	}
}

// Setup installs the default slog logger which writes into w.
func (l Log) Setup(w io.Writer) error {
	return log.Setup(w, l.Level, l.Format)
}

// Server contains the web server settings which are used by the serve
// command.
type Server struct {
	Address string `yaml:"address,omitempty" validate:"omitempty,hostname_port"`

	// TokenHash is the SCRAM hash of the API token. Clients must send
	// the token as a bearer token. An empty TokenHash disables the
	// authentication.
	TokenHash string `yaml:"token-hash,omitempty"`

	// ShutdownTimeout bounds the time which is given to the running
	// requests after a termination signal.
	ShutdownTimeout *settings.Duration `yaml:"shutdown-timeout,omitempty"`

	Gin Gin `yaml:"gin"`

	// verifier is found based on the TokenHash mechanism name by the
	// ValidateAndNormalize method.
	verifier scrami.Verifier
}

// ValidateAndNormalize fills the default values and finds the token
// verifier based on the token hash (if any).
func (s *Server) ValidateAndNormalize() error {
	if s.Address == "" {
		s.Address = DefaultAddress
	}
	if s.ShutdownTimeout == nil {
		d := settings.Duration(DefaultShutdownTimeout)
		s.ShutdownTimeout = &d
	}
	if *s.ShutdownTimeout <= 0 {
		return fmt.Errorf(
			"shutdown timeout (%v) is not positive",
			time.Duration(*s.ShutdownTimeout),
		)
	}
	settings.Nil2Zero(&s.Gin.Logger)
	settings.Nil2Zero(&s.Gin.Recovery)
	if s.TokenHash == "" {
		return nil
	}
	m, err := scram.FromHash(s.TokenHash)
	if err != nil {
		return fmt.Errorf("parsing token hash: %w", err)
	}
	s.verifier = m
	return nil
}

// Timeout returns the shutdown timeout. It must be called after the
// ValidateAndNormalize method.
func (s Server) Timeout() time.Duration {
	return time.Duration(*s.ShutdownTimeout)
}

// TokenVerifier returns the verifier and the hash of the API token.
// The returned verifier is nil if no token hash is configured.
func (s Server) TokenVerifier() (scrami.Verifier, string) {
	return s.verifier, s.TokenHash
}

// Gin contains the gin-gonic related configuration settings.
// Fields are defined as pointers, so it is possible to detect if they
// are or are not initialized and fill them by their default values.
type Gin struct {
	Logger   *bool `yaml:"logger,omitempty"`   // Whether to register the gin.Logger() middleware
	Recovery *bool `yaml:"recovery,omitempty"` // Whether to register the gin.Recovery() middleware
}

// NewEngine instantiates a new gin-gonic engine instance based on
// the `g` settings.
func (g Gin) NewEngine() *gin.Engine {
	middlewares := make([]gin.HandlerFunc, 0, 2)
	if *g.Logger {
		middlewares = append(middlewares, gin.Logger())
	}
	if *g.Recovery {
		middlewares = append(middlewares, gin.Recovery())
	}
	return gin.New(middlewares...)
}
