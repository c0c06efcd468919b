// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jobuc

import (
	"log/slog"

	"github.com/google/uuid"
)

func jobAttr(id uuid.UUID) slog.Attr {
	return slog.String("job", id.String())
}
