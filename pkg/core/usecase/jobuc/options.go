// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jobuc

import (
	"errors"
	"time"
)

// Option is a functional option for the jobs UseCase.
type Option func(uc *UseCase) error

// WithHistory option configures the number of finished jobs which are
// kept in memory. Older finished jobs are forgotten. This option may
// be passed to the New() function.
func WithHistory(n int) Option {
	return func(uc *UseCase) error {
		if n <= 0 {
			return errors.New("history must be positive")
		}
		uc.history = n
		return nil
	}
}

// WithClock option replaces the time.Now function which is used for
// the start and finish times of jobs.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) error {
		if now == nil {
			return errors.New("clock function is nil")
		}
		uc.now = now
		return nil
	}
}
