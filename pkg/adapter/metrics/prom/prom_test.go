// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package prom_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/momeni/dtransfer/internal/test/memprovider"
	"github.com/momeni/dtransfer/pkg/adapter/metrics/prom"
	"github.com/momeni/dtransfer/pkg/adapter/schemadiff"
	"github.com/momeni/dtransfer/pkg/core/model"
	"github.com/momeni/dtransfer/pkg/core/usecase/transferuc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ transferuc.Observer = (*prom.Metrics)(nil)

func TestStageFinished(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := prom.MustNewMetrics(reg)
	m.StageStarted(model.StageEntities)
	m.StageFinished(model.StageEntities, 3, time.Second, nil)
	m.StageStarted(model.StageLinks)
	m.StageFinished(model.StageLinks, 1, time.Second, errors.New("boom"))

	expected := `
# HELP dtransfer_transfer_stage_failures_total Number of failed transfer stages.
# TYPE dtransfer_transfer_stage_failures_total counter
dtransfer_transfer_stage_failures_total{stage="links"} 1
# HELP dtransfer_transfer_stage_items_total Number of items accepted by the destination streams.
# TYPE dtransfer_transfer_stage_items_total counter
dtransfer_transfer_stage_items_total{stage="entities"} 3
dtransfer_transfer_stage_items_total{stage="links"} 1
# HELP dtransfer_transfer_stages_active Number of transfer stages which are running.
# TYPE dtransfer_transfer_stages_active gauge
dtransfer_transfer_stages_active 0
`
	err := testutil.GatherAndCompare(
		reg, strings.NewReader(expected),
		"dtransfer_transfer_stage_failures_total",
		"dtransfer_transfer_stage_items_total",
		"dtransfer_transfer_stages_active",
	)
	assert.NoError(t, err)
	assert.Equal(t, 2, testutil.CollectAndCount(
		reg, "dtransfer_transfer_stage_duration_seconds",
	))
}

func TestMustNewMetricsReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m1 := prom.MustNewMetrics(reg)
	m2 := prom.MustNewMetrics(reg)
	m1.StageFinished(model.StageSchemas, 2, time.Millisecond, nil)
	m2.StageFinished(model.StageSchemas, 5, time.Millisecond, nil)
	n, err := testutil.GatherAndCount(reg, "dtransfer_transfer_stage_items_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "both instances must share one series")
}

func TestObservingTransfer(t *testing.T) {
	reg := prometheus.NewRegistry()
	src := memprovider.NewSource("src")
	src.Entities = []model.Entity{{Type: "a", ID: "1"}, {Type: "a", ID: "2"}}
	dst := memprovider.NewDestination("dst")
	e, err := transferuc.New(
		src, dst,
		model.TransferOptions{VersionMatching: model.VersionMatchingIgnore},
		schemadiff.New(),
		transferuc.WithObserver(prom.MustNewMetrics(reg)),
	)
	require.NoError(t, err)
	require.True(t, e.Transfer(context.Background()).Succeeded())
	expected := `
# HELP dtransfer_transfer_stage_items_total Number of items accepted by the destination streams.
# TYPE dtransfer_transfer_stage_items_total counter
dtransfer_transfer_stage_items_total{stage="configuration"} 0
dtransfer_transfer_stage_items_total{stage="entities"} 2
dtransfer_transfer_stage_items_total{stage="links"} 0
dtransfer_transfer_stage_items_total{stage="schemas"} 0
`
	assert.NoError(t, testutil.GatherAndCompare(
		reg, strings.NewReader(expected),
		"dtransfer_transfer_stage_items_total",
	))
}
