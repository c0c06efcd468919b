// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package cfg1 makes it possible to load configuration settings with
// version 1.x.y since all minor and patch versions (which are known)
// with the same major version, can be loaded with one implementation.
//
// A configuration file describes the source and destination instances
// (each one as a provider section), the default transfer options, the
// logging settings, and the web server settings:
//
//	versions:
//	    config: 1.0.0
//	source:
//	    kind: postgres
//	    postgres:
//	        host: 127.0.0.1
//	        port: 5432
//	        name: app
//	        role: app
//	        pass-dir: /var/lib/dtransfer
//	destination:
//	    kind: archive
//	    archive:
//	        path: /var/backups/app
//	transfer:
//	    version-matching: minor
//	    schema-matching: strict
//	log:
//	    level: info
//	server:
//	    address: 127.0.0.1:8080
//	    token-hash: SCRAM-SHA-256$15000:...
package cfg1

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/momeni/dtransfer/pkg/adapter/config/vers"
	"github.com/momeni/dtransfer/pkg/adapter/schemadiff"
	"github.com/momeni/dtransfer/pkg/core/model"
	"github.com/momeni/dtransfer/pkg/core/usecase/jobuc"
	"github.com/momeni/dtransfer/pkg/core/usecase/transferuc"
	"gopkg.in/yaml.v3"
)

// These constants define the major, minor, and patch version of the
// configuration settings which are supported by the Config struct.
const (
	Major = 1
	Minor = 0
	Patch = 0
)

// Version is the semantic version of Config struct.
var Version = model.SemVer{Major, Minor, Patch}

// Default values of the optional settings.
const (
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultAddress         = "127.0.0.1:8080"
	DefaultShutdownTimeout = 30 * time.Second
)

// Config contains all settings which are required by different parts
// of the project following the v1.x.y format. It is implemented with
// primitive fields or structs which are defined locally, not models
// which are defined in lower layers, so the configuration can be
// versioned and kept intact while other layers can change freely.
type Config struct {
	Source      Provider `yaml:"source"`
	Destination Provider `yaml:"destination"`
	Transfer    Transfer `yaml:"transfer"`
	Log         Log      `yaml:"log"`
	Server      Server   `yaml:"server"`

	// Vers contains the configuration file version string.
	Vers vers.Config `yaml:",inline"`
}

// Transfer contains the default transfer options. REST API clients
// may override the matching strategies per request.
type Transfer struct {
	VersionMatching string `yaml:"version-matching" validate:"required,oneof=ignore exact major minor patch"`
	SchemaMatching  string `yaml:"schema-matching,omitempty"`

	// BufferSize is the capacity of the channel which connects the
	// source and destination streams of each stage. A nil value lets
	// the transfer engine choose its default and zero asks for a
	// strict hand-off of items.
	BufferSize *int `yaml:"buffer-size,omitempty" validate:"omitempty,min=0"`
}

// Options returns the transfer options which are described by t.
func (t Transfer) Options() model.TransferOptions {
	return model.TransferOptions{
		VersionMatching: model.VersionMatching(t.VersionMatching),
		SchemaMatching:  model.SchemaMatching(t.SchemaMatching),
	}
}

// Load unmarshals the data byte slice and loads a Config instance
// assuming that it contains the Config settings. Extra items in the
// data will be ignored and missing items will take their default
// values. Thereafter, loaded Config will be validated and normalized
// in order to ensure that provided settings are acceptable (for example
// the major version which is reported by data settings must match
// with number 1 which is the major version of this config package).
func Load(data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("unmarshalling yaml: %w", err)
	}
	if err := c.ValidateAndNormalize(); err != nil {
		return nil, fmt.Errorf("validating configs: %w", err)
	}
	return c, nil
}

var validate = newValidator()

// newValidator creates a validator which reports the yaml names of
// the failing fields.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateAndNormalize validates the configuration settings and
// returns an error if they were not acceptable. It can also modify
// settings in order to normalize them or replace some zero values with
// their expected default values (if any).
func (c *Config) ValidateAndNormalize() error {
	if err := c.Vers.Validate(Major, Minor); err != nil {
		return fmt.Errorf(
			"expecting version v%d.%d: %w", Major, Minor, err,
		)
	}
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Transfer.SchemaMatching == "" {
		c.Transfer.SchemaMatching = string(model.SchemaMatchingStrict)
	}
	sm := model.SchemaMatching(c.Transfer.SchemaMatching)
	if !schemadiff.IsKnown(sm) {
		return fmt.Errorf("unknown schema matching: %q", sm)
	}
	if err := c.Source.ValidateAndNormalize(); err != nil {
		return fmt.Errorf("validating source settings: %w", err)
	}
	if err := c.Destination.ValidateAndNormalize(); err != nil {
		return fmt.Errorf("validating destination settings: %w", err)
	}
	if c.Source.Equal(c.Destination) {
		return errors.New("source and destination are the same instance")
	}
	c.Log.normalize()
	if err := c.Server.ValidateAndNormalize(); err != nil {
		return fmt.Errorf("validating server settings: %w", err)
	}
	return nil
}

// NewEngine instantiates fresh source and destination providers and
// a transfer Engine which uses them with the given opts options.
// The obs observer may be nil.
func (c *Config) NewEngine(
	opts model.TransferOptions, obs transferuc.Observer,
) (*transferuc.Engine, error) {
	src, err := c.Source.NewSource()
	if err != nil {
		return nil, fmt.Errorf("creating source provider: %w", err)
	}
	dst, err := c.Destination.NewDestination()
	if err != nil {
		return nil, fmt.Errorf("creating destination provider: %w", err)
	}
	options := make([]transferuc.Option, 0, 2)
	if c.Transfer.BufferSize != nil {
		options = append(
			options, transferuc.WithBufferSize(*c.Transfer.BufferSize),
		)
	}
	if obs != nil {
		options = append(options, transferuc.WithObserver(obs))
	}
	return transferuc.New(src, dst, opts, schemadiff.New(), options...)
}

// EngineFactory returns a jobuc.EngineFactory which creates engines
// using the NewEngine method.
func (c *Config) EngineFactory(obs transferuc.Observer) jobuc.EngineFactory {
	return func(opts model.TransferOptions) (*transferuc.Engine, error) {
		return c.NewEngine(opts, obs)
	}
}
