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

package cfg_test

import (
	"testing"

	"github.com/divinerapier/ossfs/cfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_LocalRequiresDir(t *testing.T) {
	c := cfg.Config{Backend: cfg.BackendConfig{Kind: cfg.BackendLocal}}
	require.Error(t, c.Validate())

	c.Backend.Dir = "/srv/data"
	assert.NoError(t, c.Validate())
}

func TestValidate_S3RequiresBucket(t *testing.T) {
	c := cfg.Config{Backend: cfg.BackendConfig{Kind: cfg.BackendS3}}
	require.Error(t, c.Validate())

	c.Backend.Bucket = "my-bucket"
	assert.NoError(t, c.Validate())
}

func TestValidate_FilerRequiresBaseURL(t *testing.T) {
	c := cfg.Config{Backend: cfg.BackendConfig{Kind: cfg.BackendFiler}}
	require.Error(t, c.Validate())

	c.Backend.FilerBaseURL = "http://filer:8888"
	assert.NoError(t, c.Validate())
}

func TestValidate_UnknownKindRejected(t *testing.T) {
	c := cfg.Config{Backend: cfg.BackendConfig{Kind: "nope"}}
	assert.Error(t, c.Validate())
}
