// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package transfersrs

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/momeni/dtransfer/pkg/adapter/restful/gin/serdser"
	"github.com/momeni/dtransfer/pkg/adapter/schemadiff"
	"github.com/momeni/dtransfer/pkg/core/model"
)

type optionsReq struct {
	VersionMatching string `json:"version_matching" binding:"omitempty,oneof=ignore exact major minor patch"`
	SchemaMatching  string `json:"schema_matching"`
}

// DserOptionsReq deserializes the optional transfer options of a POST
// request. A request without body uses the default options (and nil
// is returned for them), while absent fields of a given body are taken
// from the default options.
func (rs *resource) DserOptionsReq(c *gin.Context) (
	*model.TransferOptions, bool,
) {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil, true
	}
	req := &optionsReq{}
	if ok := serdser.Bind(c, req, binding.JSON); !ok {
		return nil, false
	}
	opts := rs.jobs.Defaults()
	if req.VersionMatching != "" {
		opts.VersionMatching = model.VersionMatching(req.VersionMatching)
	}
	if req.SchemaMatching != "" {
		opts.SchemaMatching = model.SchemaMatching(req.SchemaMatching)
	}
	var errs map[string][]string
	serdser.Assert(
		&errs, schemadiff.IsKnown(opts.SchemaMatching),
		"schema_matching", "Unknown schema matching strategy.",
	)
	if errs != nil {
		c.JSON(http.StatusBadRequest, errs)
		return nil, false
	}
	return &opts, true
}

// DserTransferID parses the tid path param as a UUID.
func (rs *resource) DserTransferID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("tid"))
	if err != nil {
		var errs map[string][]string
		serdser.AddErr(&errs, "tid", "Path param tid is not UUID.")
		c.JSON(http.StatusBadRequest, errs)
		return uuid.Nil, false
	}
	return id, true
}
