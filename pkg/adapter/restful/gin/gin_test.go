// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package gin_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/momeni/dtransfer/internal/test/memprovider"
	"github.com/momeni/dtransfer/pkg/adapter/hash/scram"
	"github.com/momeni/dtransfer/pkg/adapter/metrics/prom"
	"github.com/momeni/dtransfer/pkg/adapter/restful/gin"
	"github.com/momeni/dtransfer/pkg/adapter/restful/gin/routes"
	"github.com/momeni/dtransfer/pkg/adapter/schemadiff"
	"github.com/momeni/dtransfer/pkg/core/model"
	"github.com/momeni/dtransfer/pkg/core/usecase/jobuc"
	"github.com/momeni/dtransfer/pkg/core/usecase/transferuc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
)

const token = "s3cr3t-t0k3n"

type GinTestSuite struct {
	suite.Suite

	Ctx  context.Context
	Jobs *jobuc.UseCase
	Gin  *gin.Engine

	dstVersion string
}

func TestGinTestSuite(t *testing.T) {
	suite.Run(t, &GinTestSuite{Ctx: context.Background()})
}

func (gts *GinTestSuite) SetupTest() {
	gts.dstVersion = "1.4.0"
	reg := prometheus.NewRegistry()
	metrics := prom.MustNewMetrics(reg)
	factory := func(o model.TransferOptions) (*transferuc.Engine, error) {
		src := memprovider.NewSource("src")
		src.Meta = &model.Metadata{AppVersion: "1.2.3"}
		src.Entities = []model.Entity{
			{Type: "user", ID: "1"}, {Type: "user", ID: "2"},
		}
		dst := memprovider.NewDestination("dst")
		dst.Meta = &model.Metadata{AppVersion: gts.dstVersion}
		return transferuc.New(
			src, dst, o, schemadiff.New(),
			transferuc.WithObserver(metrics),
		)
	}
	jobs, err := jobuc.New(gts.Ctx, factory, model.TransferOptions{
		VersionMatching: model.VersionMatchingMajor,
	})
	gts.Require().NoError(err, "cannot instantiate jobs use case")
	gts.Jobs = jobs

	m := scram.SHA256()
	hash, err := m.Hash(token, "", 4096)
	gts.Require().NoError(err, "cannot hash the api token")

	gts.Gin = gin.New(gin.Recovery())
	routes.Register(gts.Gin, jobs, reg, m, hash)
}

func (gts *GinTestSuite) TearDownTest() {
	gts.Jobs.Wait()
}

func (gts *GinTestSuite) send(
	method, path, body string, authorized bool, res any,
) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, path, r)
	gts.Require().NoError(err, "cannot create request")
	if body != "" {
		req.Header.Add("Content-Type", "application/json")
	}
	if authorized {
		req.Header.Add("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	gts.Gin.ServeHTTP(w, req)
	if res != nil {
		gts.NoError(json.Unmarshal(w.Body.Bytes(), res), "body is not json")
	}
	return w
}

func (gts *GinTestSuite) TestUnauthorized() {
	for _, tc := range []struct {
		name   string
		header string
		detail string
	}{
		{name: "no header", detail: "missing bearer token"},
		{name: "basic", header: "Basic Zm9vOmJhcg==", detail: "missing bearer token"},
		{name: "wrong token", header: "Bearer wrong", detail: "invalid bearer token"},
	} {
		gts.Run(tc.name, func() {
			req, err := http.NewRequest(
				http.MethodGet, routes.APIPrefix+"/transfers", nil,
			)
			gts.Require().NoError(err, "cannot create GET request")
			if tc.header != "" {
				req.Header.Add("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			gts.Gin.ServeHTTP(w, req)

			res := &struct{ Detail string }{}
			gts.NoError(json.Unmarshal(w.Body.Bytes(), res))
			gts.Equal(http.StatusUnauthorized, w.Code)
			gts.Equal(tc.detail, res.Detail)
			gts.NotEmpty(w.Header().Get("WWW-Authenticate"))
		})
	}
}

func (gts *GinTestSuite) TestStartAndFetchTransfer() {
	job := &model.Job{}
	w := gts.send(
		http.MethodPost, routes.APIPrefix+"/transfers", "", true, job,
	)
	gts.Require().Equal(http.StatusAccepted, w.Code)
	gts.NotEqual(uuid.Nil, job.ID)
	gts.Jobs.Wait()

	fetched := &model.Job{}
	w = gts.send(
		http.MethodGet, routes.APIPrefix+"/transfers/"+job.ID.String(),
		"", true, fetched,
	)
	gts.Require().Equal(http.StatusOK, w.Code)
	gts.Equal(job.ID, fetched.ID)
	gts.Equal(model.JobSucceeded, fetched.State)
	gts.Equal(model.Stages, fetched.Completed)
	gts.NotNil(fetched.FinishedAt)

	var jobs []model.Job
	w = gts.send(
		http.MethodGet, routes.APIPrefix+"/transfers", "", true, &jobs,
	)
	gts.Require().Equal(http.StatusOK, w.Code)
	gts.Require().Len(jobs, 1)
	gts.Equal(job.ID, jobs[0].ID)
}

func (gts *GinTestSuite) TestStartTransferWithOptions() {
	gts.dstVersion = "2.0.0"
	job := &model.Job{}
	w := gts.send(
		http.MethodPost, routes.APIPrefix+"/transfers",
		`{"version_matching":"ignore"}`, true, job,
	)
	gts.Require().Equal(http.StatusAccepted, w.Code)
	gts.Jobs.Wait()

	fetched, err := gts.Jobs.Get(gts.Ctx, job.ID)
	gts.Require().NoError(err)
	gts.Equal(model.JobSucceeded, fetched.State)
}

func (gts *GinTestSuite) TestStartTransferFailsIntegrity() {
	gts.dstVersion = "2.0.0"
	job := &model.Job{}
	w := gts.send(
		http.MethodPost, routes.APIPrefix+"/transfers", "", true, job,
	)
	gts.Require().Equal(http.StatusAccepted, w.Code)
	gts.Jobs.Wait()

	fetched, err := gts.Jobs.Get(gts.Ctx, job.ID)
	gts.Require().NoError(err)
	gts.Equal(model.JobFailed, fetched.State)
	gts.Equal(transferuc.PhaseIntegrity, fetched.FailedPhase)
	gts.Empty(fetched.Completed)
}

func (gts *GinTestSuite) TestBadOptions() {
	for _, tc := range []struct {
		name     string
		body     string
		field    string
		expected string
	}{
		{
			name:     "unknown version matching",
			body:     `{"version_matching":"sloppy"}`,
			field:    "version_matching",
			expected: "failed on the 'oneof' tag",
		},
		{
			name:     "unknown schema matching",
			body:     `{"schema_matching":"sloppy"}`,
			field:    "schema_matching",
			expected: "Unknown schema matching strategy.",
		},
	} {
		for _, path := range []string{"/transfers", "/integrity"} {
			gts.Run(tc.name+" "+path, func() {
				var res map[string][]string
				w := gts.send(
					http.MethodPost, routes.APIPrefix+path,
					tc.body, true, &res,
				)
				gts.Equal(http.StatusBadRequest, w.Code)
				gts.Require().Len(res[tc.field], 1)
				gts.Contains(res[tc.field][0], tc.expected)
			})
		}
	}
}

func (gts *GinTestSuite) TestMalformedBody() {
	res := &struct{ Detail string }{}
	w := gts.send(
		http.MethodPost, routes.APIPrefix+"/transfers", "{", true, res,
	)
	gts.Equal(http.StatusBadRequest, w.Code)
	gts.NotEmpty(res.Detail)
}

func (gts *GinTestSuite) TestFetchTransferErrors() {
	res := &struct{ Detail string }{}
	w := gts.send(
		http.MethodGet, routes.APIPrefix+"/transfers/"+uuid.NewString(),
		"", true, res,
	)
	gts.Equal(http.StatusNotFound, w.Code)
	gts.Contains(res.Detail, "transfer job not found")

	var errs map[string][]string
	w = gts.send(
		http.MethodGet, routes.APIPrefix+"/transfers/not-a-uuid",
		"", true, &errs,
	)
	gts.Equal(http.StatusBadRequest, w.Code)
	gts.Equal([]string{"Path param tid is not UUID."}, errs["tid"])
}

func (gts *GinTestSuite) TestIntegrity() {
	report := &model.IntegrityReport{}
	w := gts.send(
		http.MethodPost, routes.APIPrefix+"/integrity", "", true, report,
	)
	gts.Require().Equal(http.StatusOK, w.Code)
	gts.True(report.Compatible)
	gts.Equal("src", report.Source)
	gts.Equal("dst", report.Destination)

	gts.dstVersion = "2.0.0"
	report = &model.IntegrityReport{}
	w = gts.send(
		http.MethodPost, routes.APIPrefix+"/integrity", "", true, report,
	)
	gts.Require().Equal(http.StatusOK, w.Code)
	gts.False(report.Compatible)
	gts.Equal(&model.VersionConflict{
		Source:      "1.2.3",
		Destination: "2.0.0",
		Strategy:    model.VersionMatchingMajor,
	}, report.Versions)
	gts.NotEmpty(report.Error)
}

func (gts *GinTestSuite) TestMetrics() {
	w := gts.send(
		http.MethodPost, routes.APIPrefix+"/transfers", "", true, nil,
	)
	gts.Require().Equal(http.StatusAccepted, w.Code)
	gts.Jobs.Wait()

	req, err := http.NewRequest(http.MethodGet, "/metrics", nil)
	gts.Require().NoError(err, "cannot create GET request")
	w = httptest.NewRecorder()
	gts.Gin.ServeHTTP(w, req)
	gts.Equal(http.StatusOK, w.Code)
	body := w.Body.String()
	gts.Contains(
		body, `dtransfer_transfer_stage_items_total{stage="entities"} 2`,
	)
	gts.Contains(body, "dtransfer_transfer_stage_duration_seconds")
}
