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
	"fmt"
	"sync"
	"testing"

	"github.com/divinerapier/ossfs/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree() *Tree {
	return NewTree(backend.Node{Path: "/", Attr: backend.Attributes{Kind: backend.KindDirectory}})
}

func TestTree_RootResident(t *testing.T) {
	tr := newTestTree()

	root, ok := tr.Get(RootInode)
	require.True(t, ok)
	assert.Equal(t, RootInode, root.Inode)
	assert.Equal(t, RootInode, root.Parent)
	assert.Equal(t, RootInode, root.Attr.Inode)
}

func TestTree_InsertAssignsMonotonicInodes(t *testing.T) {
	tr := newTestTree()

	a := tr.Insert(RootInode, backend.Node{Path: "/a"})
	b := tr.Insert(RootInode, backend.Node{Path: "/b"})

	assert.Equal(t, uint64(2), a)
	assert.Equal(t, uint64(3), b)

	got, ok := tr.Get(a)
	require.True(t, ok)
	assert.Equal(t, a, got.Inode)
	assert.Equal(t, a, got.Attr.Inode)
	assert.Equal(t, RootInode, got.Parent)
}

func TestTree_ChildrenPreservesInsertionOrder(t *testing.T) {
	tr := newTestTree()

	var want []uint64
	for i := 0; i < 10; i++ {
		id := tr.Insert(RootInode, backend.Node{Path: fmt.Sprintf("/f%02d", i)})
		want = append(want, id)
	}

	got := tr.Children(RootInode, 0, 100)
	require.Len(t, got, 10)
	for i, n := range got {
		assert.Equal(t, want[i], n.Inode)
	}
}

func TestTree_ChildrenWindowing(t *testing.T) {
	tr := newTestTree()
	for i := 0; i < 200; i++ {
		tr.Insert(RootInode, backend.Node{Path: fmt.Sprintf("/f%03d", i)})
	}

	assert.Len(t, tr.Children(RootInode, 0, 85), 85)
	assert.Len(t, tr.Children(RootInode, 85, 85), 85)
	assert.Len(t, tr.Children(RootInode, 170, 85), 30)
	assert.Len(t, tr.Children(RootInode, 200, 85), 0)
}

func TestTree_ConcurrentInsertsAcrossShards(t *testing.T) {
	tr := newTestTree()

	const n = 500
	var wg sync.WaitGroup
	ids := make([]uint64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = tr.Insert(RootInode, backend.Node{Path: fmt.Sprintf("/c%d", i)})
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]struct{}, n)
	for _, id := range ids {
		_, dup := seen[id]
		assert.False(t, dup, "duplicate inode assigned: %d", id)
		seen[id] = struct{}{}
	}

	count, ok := tr.ChildCount(RootInode)
	require.True(t, ok)
	assert.Equal(t, n, count)
}
