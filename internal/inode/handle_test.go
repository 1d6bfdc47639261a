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

package inode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleTable_OpenReleaseLifecycle(t *testing.T) {
	ht := NewHandleTable()

	h := ht.Open(42, 0)
	assert.NotZero(t, h)

	gotInode, _, err := ht.Lookup(h)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), gotInode)
	assert.EqualValues(t, 1, ht.RefCount(42))

	require.NoError(t, ht.Release(h))
	assert.EqualValues(t, 0, ht.RefCount(42))

	_, _, err = ht.Lookup(h)
	assert.ErrorIs(t, err, ErrBadHandle)
}

func TestHandleTable_DoubleReleaseFails(t *testing.T) {
	ht := NewHandleTable()
	h := ht.Open(1, 0)
	require.NoError(t, ht.Release(h))
	assert.ErrorIs(t, ht.Release(h), ErrBadHandle)
}

func TestHandleTable_UnknownHandleFails(t *testing.T) {
	ht := NewHandleTable()
	_, _, err := ht.Lookup(999)
	assert.ErrorIs(t, err, ErrBadHandle)
}

func TestHandleTable_HandlesNeverZero(t *testing.T) {
	ht := NewHandleTable()
	for i := 0; i < 5; i++ {
		assert.NotZero(t, ht.Open(1, 0))
	}
}
