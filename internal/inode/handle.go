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
	"sync"
	"sync/atomic"
)

// HandleState is the lifecycle state of one open-handle table entry.
type HandleState int

const (
	HandleOpened HandleState = iota
	HandleReleased
)

type handleEntry struct {
	inode uint64
	flags uint32
	state HandleState
}

// HandleTable implements the open(inode,flags) -> handle -> release(handle)
// lifecycle shared by both file and directory handles (spec: Closed ->
// Opened -> Released). Handles are opaque, monotonically issued, and
// never zero.
type HandleTable struct {
	next atomic.Uint64

	mu      sync.Mutex
	entries map[uint64]*handleEntry
	refs    map[uint64]int64 // per-inode outstanding-handle reference count
}

// NewHandleTable creates an empty table. The handle counter starts at 2
// so that a zero-value handle ID is never mistaken for a real one.
func NewHandleTable() *HandleTable {
	t := &HandleTable{
		entries: make(map[uint64]*handleEntry),
		refs:    make(map[uint64]int64),
	}
	t.next.Store(2)
	return t
}

// Open allocates a fresh handle for inode and moves it to the Opened
// state, incrementing inode's reference count.
func (t *HandleTable) Open(inode uint64, flags uint32) uint64 {
	id := t.next.Add(1) - 1

	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[id] = &handleEntry{inode: inode, flags: flags, state: HandleOpened}
	t.refs[inode]++

	return id
}

// ErrBadHandle is returned by operations on an unknown or already-released
// handle.
var ErrBadHandle = errBadHandle{}

type errBadHandle struct{}

func (errBadHandle) Error() string { return "bad handle" }

// Lookup returns the inode and flags for handle if it is currently Opened.
func (t *HandleTable) Lookup(handle uint64) (inode uint64, flags uint32, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[handle]
	if !ok || e.state != HandleOpened {
		return 0, 0, ErrBadHandle
	}
	return e.inode, e.flags, nil
}

// Release transitions handle to Released and decrements its inode's
// reference count. Releasing an unknown or already-released handle is an
// error; per the spec the kernel bridge guarantees exactly one release
// per open, so the reference count itself never gates release.
func (t *HandleTable) Release(handle uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[handle]
	if !ok || e.state != HandleOpened {
		return ErrBadHandle
	}

	e.state = HandleReleased
	delete(t.entries, handle)
	if t.refs[e.inode] > 0 {
		t.refs[e.inode]--
	}

	return nil
}

// RefCount returns the number of outstanding open handles for inode.
func (t *HandleTable) RefCount(inode uint64) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.refs[inode]
}
