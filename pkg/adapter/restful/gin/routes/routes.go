// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package routes contains all resource packages and facilitates
// their registration on a gin-gonic engine.
package routes

import (
	"github.com/gin-gonic/gin"
	ginw "github.com/momeni/dtransfer/pkg/adapter/restful/gin"
	"github.com/momeni/dtransfer/pkg/adapter/restful/gin/serdser"
	"github.com/momeni/dtransfer/pkg/adapter/restful/gin/transfersrs"
	"github.com/momeni/dtransfer/pkg/core/scram"
	"github.com/momeni/dtransfer/pkg/core/usecase/jobuc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIPrefix is the path prefix of all REST APIs.
const APIPrefix = "/api/dtransfer/v1"

// Register registers the transfers resource (adapting the jobs use
// case) under the APIPrefix path and the /metrics endpoint which
// exposes the collectors of the g gatherer.
// If v is not nil, the API requests must carry a bearer token which
// matches the tokenHash. The /metrics endpoint is not authenticated.
func Register(
	e *gin.Engine,
	jobs *jobuc.UseCase,
	g prometheus.Gatherer,
	v scram.Verifier,
	tokenHash string,
) {
	serdser.UseJSONNames()
	e.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		g, promhttp.HandlerOpts{},
	)))
	r := e.Group(APIPrefix)
	if v != nil {
		r.Use(ginw.TokenAuth(v, tokenHash))
	}
	transfersrs.Register(r, jobs)
}
