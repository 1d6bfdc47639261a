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

package fs

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"
	"testing"

	"github.com/divinerapier/ossfs/internal/backend"
	"github.com/divinerapier/ossfs/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is an in-memory backend.Backend test double, independent
// of any concrete backend implementation, so these tests exercise only
// the façade's lazy-fetch and lookup policy.
type fakeBackend struct {
	mu       sync.Mutex
	children map[string][]backend.Node
	files    map[string][]byte
	mknods   int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		children: make(map[string][]backend.Node),
		files:    make(map[string][]byte),
	}
}

func (b *fakeBackend) Root() backend.Node {
	return backend.Node{Path: "/", Attr: backend.Attributes{Kind: backend.KindDirectory, Perm: 0755}}
}

func (b *fakeBackend) GetChildren(ctx context.Context, p string) ([]backend.Node, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	nodes, ok := b.children[p]
	if !ok {
		return nil, backend.New(backend.CodeNotFound, "no such directory", nil)
	}
	out := make([]backend.Node, len(nodes))
	copy(out, nodes)
	return out, nil
}

func (b *fakeBackend) GetNode(ctx context.Context, p string) (backend.Node, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	parent := path.Dir(p)
	for _, n := range b.children[parent] {
		if n.Path == p {
			return n, nil
		}
	}
	return backend.Node{}, backend.New(backend.CodeNotFound, "not found", nil)
}

func (b *fakeBackend) Read(ctx context.Context, p string, offset int64, size int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := b.files[p]
	if offset > int64(len(data)) {
		return nil, backend.New(backend.CodeOutOfRange, "out of range", nil)
	}
	end := offset + int64(size)
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return data[offset:end], nil
}

func (b *fakeBackend) Mknod(ctx context.Context, p string, kind backend.Kind, perm uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.mknods++
	parent := path.Dir(p)
	for _, n := range b.children[parent] {
		if n.Path == p {
			return backend.New(backend.CodeAlreadyExists, "already exists", nil)
		}
	}
	b.children[parent] = append(b.children[parent], backend.Node{
		Path: p,
		Attr: backend.Attributes{Kind: kind, Perm: perm},
	})
	return nil
}

func (b *fakeBackend) Statfs(ctx context.Context) (backend.Stats, error) {
	return backend.Stats{TotalBlocks: 100, FreeBlocks: 50}, nil
}

func TestFilesystem_ColdLookupThenMknod(t *testing.T) {
	b := newFakeBackend()
	f := New(b, clock.RealClock{})
	ctx := context.Background()

	_, err := f.Lookup(ctx, 1, "a")
	assert.Equal(t, backend.CodeNotFound, backend.CodeOf(err))

	node, err := f.Mknod(ctx, 1, "a", backend.KindRegularFile, 0644, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), node.Inode)

	looked, err := f.Lookup(ctx, 1, "a")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), looked.Inode)
	assert.Equal(t, backend.KindRegularFile, looked.Attr.Kind)
	assert.EqualValues(t, 0644, looked.Attr.Perm)
}

func TestFilesystem_DirectoryStreaming(t *testing.T) {
	b := newFakeBackend()
	names := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		names = append(names, fmt.Sprintf("f%03d", i))
	}
	sort.Strings(names)
	for _, n := range names {
		b.children["/"] = append(b.children["/"], backend.Node{
			Path: path.Join("/", n),
			Attr: backend.Attributes{Kind: backend.KindRegularFile, Perm: 0644},
		})
	}

	f := New(b, clock.RealClock{})
	ctx := context.Background()

	page, err := f.ReadDir(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, page, 85)

	page, err = f.ReadDir(ctx, 1, 85)
	require.NoError(t, err)
	assert.Len(t, page, 85)

	page, err = f.ReadDir(ctx, 1, 170)
	require.NoError(t, err)
	assert.Len(t, page, 30)

	page, err = f.ReadDir(ctx, 1, 200)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestFilesystem_DuplicateMknodDoesNotCallBackendTwice(t *testing.T) {
	b := newFakeBackend()
	f := New(b, clock.RealClock{})
	ctx := context.Background()

	_, err := f.Mknod(ctx, 1, "x", backend.KindDirectory, 0755, 0, 0)
	require.NoError(t, err)

	_, err = f.Mknod(ctx, 1, "x", backend.KindDirectory, 0755, 0, 0)
	assert.Equal(t, backend.CodeAlreadyExists, backend.CodeOf(err))
	assert.Equal(t, 1, b.mknods, "backend.Mknod must not be called a second time for a resident name")
}

func TestFilesystem_ReadBoundaries(t *testing.T) {
	b := newFakeBackend()
	require.NoError(t, b.Mknod(context.Background(), "/hello.txt", backend.KindRegularFile, 0644))
	b.files["/hello.txt"] = []byte("hello world")
	b.children["/"][0].Attr.Size = 11

	f := New(b, clock.RealClock{})
	ctx := context.Background()

	node, err := f.Lookup(ctx, 1, "hello.txt")
	require.NoError(t, err)

	data, err := f.Read(ctx, node.Inode, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, "hell", string(data))

	data, err = f.Read(ctx, node.Inode, 11, 1)
	require.NoError(t, err)
	assert.Empty(t, data)

	_, err = f.Read(ctx, node.Inode, 12, 1)
	assert.Equal(t, backend.CodeOutOfRange, backend.CodeOf(err))
}

func TestFilesystem_HandleLifecycle(t *testing.T) {
	f := New(newFakeBackend(), clock.RealClock{})

	h := f.OpenHandle(1, 0)
	ino, err := f.LookupHandle(h)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ino)

	require.NoError(t, f.ReleaseHandle(h))
	_, err = f.LookupHandle(h)
	assert.Error(t, err)
}

func TestFilesystem_InstanceIDUniquePerFilesystem(t *testing.T) {
	a := New(newFakeBackend(), clock.RealClock{})
	b := New(newFakeBackend(), clock.RealClock{})

	assert.NotEmpty(t, a.InstanceID())
	assert.NotEqual(t, a.InstanceID(), b.InstanceID())
}
