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

package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePrefix(t *testing.T) {
	cases := map[string]string{
		"":         "",
		"/":        "",
		"a":        "a/",
		"a/":       "a/",
		"/a/b":     "a/b/",
		"/a/b/":    "a/b/",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizePrefix(in), "input %q", in)
	}
}

func TestTranslateErr_NonAWSErrorIsIO(t *testing.T) {
	err := translateErr(assertErr{})
	assert.Equal(t, `s3 backend i/o error: boom`, err.Error())
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
