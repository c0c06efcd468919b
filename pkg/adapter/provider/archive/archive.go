// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package archive provides source and destination providers which keep
// an application instance in a directory. The directory contains a
// metadata.json file and one JSON-lines file per stream category
// (e.g., entities.jsonl) which holds one JSON document per item.
//
// A destination writes each category into a temporary file first and
// renames it to its final name only when the stream is closed, so a
// failed stage never leaves a partially written category behind.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/momeni/dtransfer/pkg/core/model"
)

// File names which are used in an archive directory.
const (
	MetadataFile = "metadata.json"
	tmpSuffix    = ".tmp"
)

// ErrNotEmpty indicates that a destination directory contains some
// files and overwriting them was not allowed.
var ErrNotEmpty = errors.New("archive directory is not empty")

// FileName returns the name of the JSON-lines file which keeps the
// items of the stage category.
func FileName(stage model.Stage) string {
	return string(stage) + ".jsonl"
}

func name(dir string) string {
	return fmt.Sprintf("archive(%s)", dir)
}

// isEmptyDir returns true if dir has no entries or does not exist.
func isEmptyDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}

func path(dir string, stage model.Stage) string {
	return filepath.Join(dir, FileName(stage))
}
