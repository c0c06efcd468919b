// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cerr

import (
	"fmt"

	"github.com/momeni/dtransfer/pkg/core/model"
)

// MissingStreamError indicates that a provider could not offer a stream
// for the Stage category. The Side field tells if the source (readable)
// or destination (writable) stream was missing.
type MissingStreamError struct {
	Stage model.Stage
	Side  model.Side
}

func (mse *MissingStreamError) Error() string {
	return fmt.Sprintf("%s %s stream is missing", mse.Stage, mse.Side)
}

// StreamError wraps the first error which was raised by either side of
// an active stage relay.
type StreamError struct {
	Stage model.Stage
	Side  model.Side
	Err   error
}

func (se *StreamError) Error() string {
	return fmt.Sprintf("%s %s stream: %v", se.Stage, se.Side, se.Err)
}

func (se *StreamError) Unwrap() error {
	return se.Err
}
