// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import (
	"time"

	"github.com/google/uuid"
)

// JobState is the life cycle state of a transfer Job.
type JobState string

// Valid values for the JobState enum.
const (
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// Job describes one transfer attempt which was started by a client.
// The Completed slice lists those stages which were transferred fully.
// A failed job reports its failing phase (a stage name, or one of the
// bootstrap, integrity, and close phases) and the error message.
type Job struct {
	ID          uuid.UUID  `json:"id"`
	State       JobState   `json:"state"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Completed   []Stage    `json:"completed"`
	FailedPhase string     `json:"failed_phase,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// IntegrityReport describes the result of an integrity check between
// a source and a destination instance. Either of the Versions or Schemas
// fields may be filled when the check has failed due to a version or
// schema mismatch, while other failures are only reported by Error.
type IntegrityReport struct {
	Compatible  bool              `json:"compatible"`
	Source      string            `json:"source"`
	Destination string            `json:"destination"`
	Versions    *VersionConflict  `json:"versions,omitempty"`
	Schemas     map[string][]Diff `json:"schemas,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// VersionConflict records two mismatching application versions and the
// strategy which has rejected them.
type VersionConflict struct {
	Source      string          `json:"source"`
	Destination string          `json:"destination"`
	Strategy    VersionMatching `json:"strategy"`
}
