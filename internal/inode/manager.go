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
	"path"
	"sync"

	"github.com/divinerapier/ossfs/internal/backend"
)

// nameIndexShardCount mirrors the tree's shard count; the index is keyed
// by parent inode, same as the tree's children lists.
const nameIndexShardCount = shardCount

type nameIndexShard struct {
	mu sync.RWMutex
	m  map[uint64]map[string]uint64 // parent inode -> basename -> child inode
}

// Manager is the public API the filesystem facade uses: it owns the Tree,
// the (parent, basename) -> child-inode name index, and hands out fresh
// inode numbers via the Tree's allocator.
type Manager struct {
	tree  *Tree
	index [nameIndexShardCount]*nameIndexShard
}

// NewManager constructs a Manager whose tree's root is root.
func NewManager(root backend.Node) *Manager {
	m := &Manager{tree: NewTree(root)}
	for i := range m.index {
		m.index[i] = &nameIndexShard{m: make(map[uint64]map[string]uint64)}
	}
	return m
}

func (m *Manager) indexShard(parent uint64) *nameIndexShard {
	return m.index[parent%nameIndexShardCount]
}

// GetNode resolves inode to its current Node.
func (m *Manager) GetNode(inode uint64) (backend.Node, bool) {
	return m.tree.Get(inode)
}

// GetChildByName resolves (parent, name) via the name index, then the
// tree. Returns ok=false if no such child is resident.
func (m *Manager) GetChildByName(parent uint64, name string) (backend.Node, bool) {
	is := m.indexShard(parent)
	is.mu.RLock()
	childInode, ok := is.m[parent][name]
	is.mu.RUnlock()

	if !ok {
		return backend.Node{}, false
	}
	return m.tree.Get(childInode)
}

// Children returns a page of parent's children. If checkEmpty is set and
// offset is 0 and parent has no recorded children, Children returns
// ok=false as a signal to the caller to fetch from the backend. Otherwise
// out-of-range offsets yield an empty (but ok=true) slice.
func (m *Manager) Children(parent uint64, offset, limit int, checkEmpty bool) (nodes []backend.Node, ok bool) {
	if checkEmpty && offset == 0 {
		if n, resident := m.tree.ChildCount(parent); resident && n == 0 {
			return nil, false
		}
	}
	return m.tree.Children(parent, offset, limit), true
}

// AddChild inserts child under parent, assigning it a fresh inode number,
// unless basename(child.Path) already exists under parent, in which case
// the existing child is returned unchanged and created=false.
func (m *Manager) AddChild(parent uint64, child backend.Node) (node backend.Node, created bool) {
	name := path.Base(child.Path)

	is := m.indexShard(parent)
	is.mu.Lock()
	defer is.mu.Unlock()

	if existingInode, ok := is.m[parent][name]; ok {
		if existing, ok := m.tree.Get(existingInode); ok {
			return existing, false
		}
	}

	newInode := m.tree.Insert(parent, child)
	if is.m[parent] == nil {
		is.m[parent] = make(map[string]uint64)
	}
	is.m[parent][name] = newInode

	n, _ := m.tree.Get(newInode)
	return n, true
}

// BatchAddChildren applies AddChild to each of children in order, skipping
// any whose basename already exists (either earlier in the batch or
// already resident). Returns the resulting resident Nodes for the whole
// batch, one per input element, in order.
func (m *Manager) BatchAddChildren(parent uint64, children []backend.Node) []backend.Node {
	out := make([]backend.Node, 0, len(children))
	for _, c := range children {
		n, _ := m.AddChild(parent, c)
		out = append(out, n)
	}
	return out
}
