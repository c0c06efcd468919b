// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/momeni/dtransfer/pkg/adapter/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, version string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(`versions:
    config: `+version+`
source:
    kind: archive
    archive:
        path: /a
destination:
    kind: archive
    archive:
        path: /b
transfer:
    version-matching: exact
`), 0o600)
	require.NoError(t, err)
	return path
}

func TestLoad(t *testing.T) {
	c, err := config.Load(writeConfig(t, "1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, "/a", c.Source.Archive.Path)
	assert.Equal(t, "strict", c.Transfer.SchemaMatching)

	_, err = config.Load(writeConfig(t, "2.1.0"))
	assert.EqualError(t, err, "unexpected config version: 2.1.0")

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading config file")
}
