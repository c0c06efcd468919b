// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package transfersrs realizes the transfers resource, allowing the
// transfer jobs and integrity check REST APIs to be accepted and
// delegated to the jobs use case respectively.
package transfersrs

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/momeni/dtransfer/pkg/adapter/restful/gin/serdser"
	"github.com/momeni/dtransfer/pkg/core/usecase/jobuc"
)

type resource struct {
	jobs *jobuc.UseCase
}

// Register instantiates a resource adapting the jobs use case instance
// with the relevant REST APIs including:
//  1. POST request to /api/dtransfer/v1/transfers
//     in order to start a transfer job in the background,
//  2. GET request to /api/dtransfer/v1/transfers
//     in order to list the recent transfer jobs,
//  3. GET request to /api/dtransfer/v1/transfers/:tid
//     in order to fetch one transfer job,
//  4. POST request to /api/dtransfer/v1/integrity
//     in order to check if the configured instances are compatible.
//
// The POST requests may carry a JSON body with the version_matching
// and schema_matching fields, overriding the configured defaults.
func Register(r gin.IRoutes, jobs *jobuc.UseCase) {
	rs := &resource{jobs: jobs}
	r.POST("transfers", rs.StartTransfer)
	r.GET("transfers", rs.ListTransfers)
	r.GET("transfers/:tid", rs.FetchTransfer)
	r.POST("integrity", rs.CheckIntegrity)
}

func (rs *resource) StartTransfer(c *gin.Context) {
	opts, ok := rs.DserOptionsReq(c)
	if !ok {
		return
	}
	job, err := rs.jobs.Start(c, opts)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

func (rs *resource) ListTransfers(c *gin.Context) {
	c.JSON(http.StatusOK, rs.jobs.List(c))
}

func (rs *resource) FetchTransfer(c *gin.Context) {
	id, ok := rs.DserTransferID(c)
	if !ok {
		return
	}
	job, err := rs.jobs.Get(c, id)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (rs *resource) CheckIntegrity(c *gin.Context) {
	opts, ok := rs.DserOptionsReq(c)
	if !ok {
		return
	}
	report, err := rs.jobs.Check(c, opts)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
