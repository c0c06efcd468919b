// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cerr

import (
	"fmt"

	"github.com/momeni/dtransfer/pkg/core/model"
)

// VersionMismatchError indicates that the application versions of the
// source and destination instances do not agree under the Strategy
// version matching strategy.
type VersionMismatchError struct {
	Source      string
	Destination string
	Strategy    model.VersionMatching
}

// Error returns a string representation of `vme` error instance. This
// method causes *VersionMismatchError to implement error interface.
func (vme *VersionMismatchError) Error() string {
	return fmt.Sprintf(
		"source version %q does not match destination version %q"+
			" using the %q strategy",
		vme.Source, vme.Destination, string(vme.Strategy),
	)
}
