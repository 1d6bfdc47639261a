// Copyright 2024 The ossfs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics_test

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divinerapier/ossfs/metrics"
)

func TestObserve_ExposedViaHandler(t *testing.T) {
	metrics.Observe(metrics.OpLookup, nil, 0)
	metrics.Observe(metrics.OpLookup, errors.New("boom"), 0)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	metrics.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "ossfs_requests_total"))
	assert.True(t, strings.Contains(body, `op="lookup"`))
}

func TestTrack_RecordsOutcome(t *testing.T) {
	var err error
	func() {
		defer metrics.Track(metrics.OpRead, &err)()
	}()
	assert.NoError(t, err)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.True(t, strings.Contains(rec.Body.String(), `ossfs_requests_total{op="read",outcome="ok"}`))
}
