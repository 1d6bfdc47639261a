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

package perms_test

import (
	"testing"

	"github.com/divinerapier/ossfs/internal/perms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMyUserAndGroupNoError(t *testing.T) {
	uid, gid, err := perms.MyUserAndGroup()
	require.NoError(t, err)

	assert.NotEqual(t, uint32(1<<32-1), uid)
	assert.NotEqual(t, uint32(1<<32-1), gid)
}
