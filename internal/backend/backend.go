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

// Package backend defines the contract every storage backend (local
// directory, S3-compatible bucket, distributed filer) must satisfy, along
// with the Node/Attributes types the rest of the filesystem core is built
// on.
package backend

import (
	"context"
	"time"
)

// Kind identifies the type of filesystem entity a Node represents.
type Kind int

const (
	KindUnknown Kind = iota
	KindDirectory
	KindRegularFile
	KindSymlink
	KindBlockDevice
	KindCharDevice
	KindNamedPipe
	KindSocket
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindRegularFile:
		return "file"
	case KindSymlink:
		return "symlink"
	case KindBlockDevice:
		return "block-device"
	case KindCharDevice:
		return "char-device"
	case KindNamedPipe:
		return "named-pipe"
	case KindSocket:
		return "socket"
	default:
		return "unknown"
	}
}

// Attributes carries everything the kernel bridge needs to answer a
// getattr/lookup request for one Node.
type Attributes struct {
	Inode uint64

	Size   uint64
	Blocks uint64

	Atime time.Time
	Mtime time.Time
	Ctime time.Time
	Crtime time.Time

	Kind  Kind
	Perm  uint32 // permission bits, e.g. 0755
	Nlink uint32
	Uid   uint32
	Gid   uint32
	Rdev  uint32
	Flags uint32
}

// Node is the backend's view of one filesystem entity. Backends always
// return Nodes with Inode and Parent unset (zero); the inode manager is
// solely responsible for assigning those once the Node is admitted into
// the tree. Path is opaque to the core: it is whatever string the owning
// backend needs to identify the entity in later calls.
type Node struct {
	Inode  uint64
	Parent uint64
	Path   string
	Attr   Attributes
}

// Stats is the result of a statfs call.
type Stats struct {
	TotalBlocks uint64
	FreeBlocks  uint64
	TotalFiles  uint64
	FreeFiles   uint64
	BlockSize   uint32
	FragSize    uint32
	MaxNameLen  uint32
}

// Backend is the capability set every concrete storage backend
// implements. Implementations must be safe for concurrent use from
// multiple goroutines.
type Backend interface {
	// Root returns the Node for the backend's root directory. It is only
	// ever called once, at construction time of the owning Manager; a
	// backend that cannot determine its root should panic rather than
	// return an error, since there is no sensible way to run without one.
	Root() Node

	// GetChildren lists the immediate children of the directory at path.
	// Returned Nodes have Inode and Parent set to zero.
	GetChildren(ctx context.Context, path string) ([]Node, error)

	// GetNode resolves a single path to its Node. Returned Node has Inode
	// and Parent set to zero.
	GetNode(ctx context.Context, path string) (Node, error)

	// Read returns up to size bytes starting at offset. It returns an
	// empty slice, nil iff offset is exactly at end-of-file, and fails
	// with ErrOutOfRange if offset is beyond end-of-file.
	Read(ctx context.Context, path string, offset int64, size int) ([]byte, error)

	// Mknod creates a new node of the given kind with the given
	// permission bits.
	Mknod(ctx context.Context, path string, kind Kind, perm uint32) error

	// Statfs reports filesystem-wide statistics.
	Statfs(ctx context.Context) (Stats, error)
}
