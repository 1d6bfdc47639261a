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

package backend_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divinerapier/ossfs/internal/backend"
)

type countingBackend struct {
	backend.Backend
	calls int
	node  backend.Node
	err   error
}

func (c *countingBackend) GetNode(ctx context.Context, path string) (backend.Node, error) {
	c.calls++
	return c.node, c.err
}

func (c *countingBackend) Mknod(ctx context.Context, path string, kind backend.Kind, perm uint32) error {
	return nil
}

func TestStatCache_CachesWithinTTL(t *testing.T) {
	inner := &countingBackend{node: backend.Node{Path: "/a"}}
	cache := backend.WithStatCache(inner, time.Minute)

	n1, err := cache.GetNode(context.Background(), "/a")
	require.NoError(t, err)
	n2, err := cache.GetNode(context.Background(), "/a")
	require.NoError(t, err)

	assert.Equal(t, n1, n2)
	assert.Equal(t, 1, inner.calls)
}

func TestStatCache_RefetchesAfterTTL(t *testing.T) {
	inner := &countingBackend{node: backend.Node{Path: "/a"}}
	cache := backend.WithStatCache(inner, time.Nanosecond)

	_, err := cache.GetNode(context.Background(), "/a")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = cache.GetNode(context.Background(), "/a")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestStatCache_ZeroTTLDisablesCaching(t *testing.T) {
	inner := &countingBackend{node: backend.Node{Path: "/a"}}
	cache := backend.WithStatCache(inner, 0)

	_, _ = cache.GetNode(context.Background(), "/a")
	_, _ = cache.GetNode(context.Background(), "/a")

	assert.Equal(t, 2, inner.calls)
}

func TestStatCache_MknodInvalidatesEntry(t *testing.T) {
	inner := &countingBackend{node: backend.Node{Path: "/a"}}
	cache := backend.WithStatCache(inner, time.Minute)

	_, err := cache.GetNode(context.Background(), "/a")
	require.NoError(t, err)
	require.NoError(t, cache.Mknod(context.Background(), "/a", backend.KindRegularFile, 0644))
	_, err = cache.GetNode(context.Background(), "/a")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}
