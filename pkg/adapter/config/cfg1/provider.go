// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cfg1

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/momeni/dtransfer/pkg/adapter/db/postgres/instancerp"
	"github.com/momeni/dtransfer/pkg/adapter/provider/archive"
	"github.com/momeni/dtransfer/pkg/core/repo"
)

// Supported provider kinds.
const (
	KindArchive  = "archive"
	KindPostgres = "postgres"
)

// Provider describes one application instance. The Kind field selects
// which one of the Archive and Postgres sections must be filled.
type Provider struct {
	Kind     string    `yaml:"kind" validate:"required,oneof=archive postgres"`
	Archive  *Archive  `yaml:"archive,omitempty" validate:"required_if=Kind archive"`
	Postgres *Postgres `yaml:"postgres,omitempty" validate:"required_if=Kind postgres"`
}

// Archive contains the settings of a directory-based instance.
type Archive struct {
	Path string `yaml:"path" validate:"required"`

	// AppVersion is stamped into the metadata of a fresh archive
	// when it is used as a destination.
	AppVersion string `yaml:"app-version,omitempty"`

	// Overwrite allows a destination archive to be written into a
	// non-empty directory.
	Overwrite bool `yaml:"overwrite,omitempty"`
}

// Postgres contains the PostgreSQL database connection settings.
type Postgres struct {
	Host    string `yaml:"host" validate:"required"`
	Port    int    `yaml:"port" validate:"required,min=1,max=65535"`
	Name    string `yaml:"name" validate:"required"`
	Role    string `yaml:"role" validate:"required"`
	PassDir string `yaml:"pass-dir" validate:"required"` // path of the passwords dir

	BatchSize  int    `yaml:"batch-size,omitempty" validate:"omitempty,min=1"`
	Initialize bool   `yaml:"initialize,omitempty"` // create missing tables
	AppVersion string `yaml:"app-version,omitempty"`
}

// ValidateAndNormalize validates the settings of the selected kind and
// drops the section of the other kind, so it is ignored afterwards.
func (p *Provider) ValidateAndNormalize() error {
	switch p.Kind {
	case KindArchive:
		p.Postgres = nil
		p.Archive.Path = filepath.Clean(p.Archive.Path)
	case KindPostgres:
		p.Archive = nil
	default:
		return fmt.Errorf("unsupported provider kind: %q", p.Kind)
	}
	return nil
}

// Equal returns true if p and q describe the same instance, so they
// may not be used as the source and destination of one transfer.
func (p Provider) Equal(q Provider) bool {
	switch {
	case p.Kind != q.Kind:
		return false
	case p.Kind == KindArchive:
		return p.Archive.Path == q.Archive.Path
	default:
		a, b := p.Postgres, q.Postgres
		return a.Host == b.Host && a.Port == b.Port && a.Name == b.Name
	}
}

// NewSource instantiates a source provider based on the p settings.
func (p Provider) NewSource() (repo.SourceProvider, error) {
	switch p.Kind {
	case KindArchive:
		return archive.NewSource(p.Archive.Path), nil
	case KindPostgres:
		opts, err := p.Postgres.options()
		if err != nil {
			return nil, err
		}
		s, err := instancerp.NewSource(p.Postgres.String(), opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported provider kind: %q", p.Kind)
	}
}

// NewDestination instantiates a destination provider based on the
// p settings.
func (p Provider) NewDestination() (repo.DestinationProvider, error) {
	switch p.Kind {
	case KindArchive:
		a := p.Archive
		opts := make([]archive.Option, 0, 2)
		if a.AppVersion != "" {
			opts = append(opts, archive.WithAppVersion(a.AppVersion))
		}
		if a.Overwrite {
			opts = append(opts, archive.WithOverwrite())
		}
		d, err := archive.NewDestination(a.Path, opts...)
		if err != nil {
			return nil, err
		}
		return d, nil
	case KindPostgres:
		opts, err := p.Postgres.options()
		if err != nil {
			return nil, err
		}
		d, err := instancerp.NewDestination(p.Postgres.String(), opts...)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unsupported provider kind: %q", p.Kind)
	}
}

// String returns the provider name of the d database instance.
func (d Postgres) String() string {
	return fmt.Sprintf("postgres(%s:%d/%s)", d.Host, d.Port, d.Name)
}

func (d Postgres) options() ([]instancerp.Option, error) {
	path := filepath.Join(d.PassDir, ".pgpass")
	u, err := d.ConnectionURL(path)
	if err != nil {
		return nil, fmt.Errorf("using %q pass-file: %w", path, err)
	}
	opts := []instancerp.Option{instancerp.WithURL(u)}
	if d.BatchSize > 0 {
		opts = append(opts, instancerp.WithBatchSize(d.BatchSize))
	}
	if d.Initialize {
		opts = append(opts, instancerp.WithInitialize())
	}
	if d.AppVersion != "" {
		opts = append(opts, instancerp.WithAppVersion(d.AppVersion))
	}
	return opts, nil
}

// ConnectionURL returns the database connection URL embedding the host,
// port, role name, database name, and password value. These items are
// directly taken from the `d` settings, but the password value which is
// read from the given `path` file. Returned URL has the postgresql
// scheme. The `path` file may contain empty or `#`-commented lines in
// addition to the password specifying lines which should conform with
// the pgpass files format with lines like this:
//
//	host:port:dbname:role:password
//
// If the `path` file could be read and a password for the d.Role role
// could be identified, a URL and a nil error will be returned.
func (d Postgres) ConnectionURL(path string) (string, error) {
	passLines, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading pass-file: %w", err)
	}
	prfx := fmt.Sprintf("%s:%d:%s:%s:", d.Host, d.Port, d.Name, d.Role)
	var pass string
	for _, line := range strings.Split(string(passLines), "\n") {
		if line == "" || line[0] == '#' {
			continue
		}
		if strings.HasPrefix(line, prfx) {
			pass = line[len(prfx):]
			break
		}
	}
	if pass == "" {
		return "", errors.New("no matching password line")
	}
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(d.Role, pass),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	return u.String(), nil
}
