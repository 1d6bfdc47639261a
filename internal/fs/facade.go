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

// Package fs combines the inode manager and a storage backend into the
// stateless façade the kernel-bridge translator drives: lookup, getattr,
// readdir, mknod, read and statfs, each with the lazy-fetch policy
// described in the design.
package fs

import (
	"context"
	"path"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/divinerapier/ossfs/internal/backend"
	"github.com/divinerapier/ossfs/internal/clock"
	"github.com/divinerapier/ossfs/internal/inode"
)

// ReaddirPageLimit is the fixed window size a single readdir reply
// serves, chosen so a full page fits in the kernel-bridge reply buffer.
const ReaddirPageLimit = 85

// Filesystem is the stateless façade over a Manager and a Backend. All
// methods are safe for concurrent use.
type Filesystem struct {
	mgr     *inode.Manager
	backend backend.Backend
	handles *inode.HandleTable
	clock   clock.Clock

	// requests counts façade calls (all but LookupHandle), independent of
	// outcome; RequestCount reports it. The translator's metrics are
	// recorded separately through metrics.Track.
	requests atomic.Uint64

	// instanceID uniquely identifies this Filesystem's lifetime, used as
	// the default mount volume name and in log correlation.
	instanceID string
}

// New constructs a Filesystem whose root Node comes from b.Root().
func New(b backend.Backend, clk clock.Clock) *Filesystem {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Filesystem{
		mgr:        inode.NewManager(b.Root()),
		backend:    b,
		handles:    inode.NewHandleTable(),
		clock:      clk,
		instanceID: uuid.NewString(),
	}
}

// RequestCount returns the number of façade calls served so far.
func (fs *Filesystem) RequestCount() uint64 { return fs.requests.Load() }

// InstanceID returns the unique id minted for this Filesystem's lifetime.
func (fs *Filesystem) InstanceID() string { return fs.instanceID }

func (fs *Filesystem) countRequest() { fs.requests.Add(1) }

// Lookup resolves name under parent, consulting the name index before
// falling back to the backend.
func (fs *Filesystem) Lookup(ctx context.Context, parent uint64, name string) (backend.Node, error) {
	fs.countRequest()

	if child, ok := fs.mgr.GetChildByName(parent, name); ok {
		return child, nil
	}

	parentNode, ok := fs.mgr.GetNode(parent)
	if !ok {
		return backend.Node{}, backend.New(backend.CodeNotFound, "lookup: unknown parent inode", nil)
	}

	childPath := path.Join(parentNode.Path, name)
	resolved, err := fs.backend.GetNode(ctx, childPath)
	if err != nil {
		return backend.Node{}, err
	}

	added, _ := fs.mgr.AddChild(parent, resolved)
	return added, nil
}

// GetAttr resolves inode directly.
func (fs *Filesystem) GetAttr(ctx context.Context, ino uint64) (backend.Node, error) {
	fs.countRequest()

	n, ok := fs.mgr.GetNode(ino)
	if !ok {
		return backend.Node{}, backend.New(backend.CodeNotFound, "getattr: unknown inode", nil)
	}
	return n, nil
}

// ReadDir returns up to ReaddirPageLimit children of parent starting at
// offset, fetching from the backend on a cold (empty, offset-0) parent.
func (fs *Filesystem) ReadDir(ctx context.Context, parent uint64, offset int) ([]backend.Node, error) {
	fs.countRequest()

	if nodes, ok := fs.mgr.Children(parent, offset, ReaddirPageLimit, true); ok {
		return nodes, nil
	}

	parentNode, ok := fs.mgr.GetNode(parent)
	if !ok {
		return nil, backend.New(backend.CodeNotFound, "readdir: unknown parent inode", nil)
	}

	children, err := fs.backend.GetChildren(ctx, parentNode.Path)
	if err != nil {
		// Leave the parent's resident child list untouched so the next
		// call retries the backend fetch.
		return nil, err
	}

	fs.mgr.BatchAddChildren(parent, children)

	nodes, _ := fs.mgr.Children(parent, offset, ReaddirPageLimit, false)
	return nodes, nil
}

// Mknod creates name under parent with the given kind and permission
// bits, failing AlreadyExists without touching the backend a second time
// if the name is already resident.
func (fs *Filesystem) Mknod(ctx context.Context, parent uint64, name string, kind backend.Kind, perm uint32, uid, gid uint32) (backend.Node, error) {
	fs.countRequest()

	if _, ok := fs.mgr.GetChildByName(parent, name); ok {
		return backend.Node{}, backend.New(backend.CodeAlreadyExists, "mknod: already exists", nil)
	}

	parentNode, ok := fs.mgr.GetNode(parent)
	if !ok {
		return backend.Node{}, backend.New(backend.CodeNotFound, "mknod: unknown parent inode", nil)
	}

	childPath := path.Join(parentNode.Path, name)
	if err := fs.backend.Mknod(ctx, childPath, kind, perm); err != nil {
		return backend.Node{}, err
	}

	now := fs.clock.Now()
	child := backend.Node{
		Path: childPath,
		Attr: backend.Attributes{
			Kind:   kind,
			Perm:   perm,
			Nlink:  1,
			Uid:    uid,
			Gid:    gid,
			Atime:  now,
			Mtime:  now,
			Ctime:  now,
			Crtime: now,
		},
	}

	added, created := fs.mgr.AddChild(parent, child)
	if !created {
		return backend.Node{}, backend.New(backend.CodeAlreadyExists, "mknod: already exists", nil)
	}
	return added, nil
}

// Read returns up to size bytes of inode's content starting at offset,
// clamped to the Node's recorded size.
func (fs *Filesystem) Read(ctx context.Context, ino uint64, offset int64, size int) ([]byte, error) {
	fs.countRequest()

	n, ok := fs.mgr.GetNode(ino)
	if !ok {
		return nil, backend.New(backend.CodeNotFound, "read: unknown inode", nil)
	}

	total := int64(n.Attr.Size)
	if offset == total {
		return []byte{}, nil
	}
	if offset > total {
		return nil, backend.New(backend.CodeOutOfRange, "read: offset beyond end of file", nil)
	}

	remaining := total - offset
	if int64(size) > remaining {
		size = int(remaining)
	}

	return fs.backend.Read(ctx, n.Path, offset, size)
}

// Statfs resolves inode and delegates to the backend.
func (fs *Filesystem) Statfs(ctx context.Context, ino uint64) (backend.Stats, error) {
	fs.countRequest()

	if _, ok := fs.mgr.GetNode(ino); !ok {
		return backend.Stats{}, backend.New(backend.CodeNotFound, "statfs: unknown inode", nil)
	}
	return fs.backend.Statfs(ctx)
}

// OpenHandle allocates a fresh handle for inode, moving it to the Opened
// state.
func (fs *Filesystem) OpenHandle(ino uint64, flags uint32) uint64 {
	fs.countRequest()
	return fs.handles.Open(ino, flags)
}

// LookupHandle resolves handle to its inode, failing BadHandle if it is
// unknown or already released.
func (fs *Filesystem) LookupHandle(handle uint64) (uint64, error) {
	ino, _, err := fs.handles.Lookup(handle)
	if err != nil {
		return 0, backend.New(backend.CodeOther, "bad handle", err)
	}
	return ino, nil
}

// ReleaseHandle releases handle, failing BadHandle if it is unknown or
// already released.
func (fs *Filesystem) ReleaseHandle(handle uint64) error {
	fs.countRequest()
	if err := fs.handles.Release(handle); err != nil {
		return backend.New(backend.CodeOther, "bad handle", err)
	}
	return nil
}
