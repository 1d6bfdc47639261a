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

// Package local implements backend.Backend over an ordinary directory on
// the local filesystem, by way of plain os/io calls.
package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/divinerapier/ossfs/internal/backend"
)

// Backend is a backend.Backend rooted at Dir.
type Backend struct {
	Dir string
}

// New returns a local backend rooted at dir. It panics if dir is not a
// reachable directory, matching the contract's "panic only if root is
// unreachable at construction" rule.
func New(dir string) *Backend {
	abs, err := filepath.Abs(dir)
	if err != nil {
		panic("local backend: " + err.Error())
	}

	fi, err := os.Stat(abs)
	if err != nil {
		panic("local backend: root unreachable: " + err.Error())
	}
	if !fi.IsDir() {
		panic("local backend: root is not a directory: " + abs)
	}

	return &Backend{Dir: abs}
}

func (b *Backend) resolve(path string) string {
	return path
}

// Root returns the backend root Node. Its kind is forced to Directory
// regardless of what the OS reports, per the spec's open question: the
// root's kind is never anything but a directory.
func (b *Backend) Root() backend.Node {
	fi, err := os.Stat(b.Dir)
	if err != nil {
		panic("local backend: root unreachable: " + err.Error())
	}

	return backend.Node{
		Path: b.Dir,
		Attr: attrsFromFileInfo(fi, true),
	}
}

func (b *Backend) GetChildren(ctx context.Context, path string) ([]backend.Node, error) {
	entries, err := os.ReadDir(b.resolve(path))
	if err != nil {
		return nil, translateErr(err)
	}

	// os.ReadDir already sorts by name; re-sort defensively so the
	// insertion order the manager observes is deterministic regardless
	// of the OS's directory-entry ordering guarantees.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	out := make([]backend.Node, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, backend.Node{
			Path: filepath.Join(path, e.Name()),
			Attr: attrsFromFileInfo(info, e.IsDir()),
		})
	}
	return out, nil
}

func (b *Backend) GetNode(ctx context.Context, path string) (backend.Node, error) {
	fi, err := os.Lstat(b.resolve(path))
	if err != nil {
		return backend.Node{}, translateErr(err)
	}
	return backend.Node{Path: path, Attr: attrsFromFileInfo(fi, fi.IsDir())}, nil
}

func (b *Backend) Read(ctx context.Context, path string, offset int64, size int) ([]byte, error) {
	f, err := os.Open(b.resolve(path))
	if err != nil {
		return nil, translateErr(err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, translateErr(err)
	}

	if offset > fi.Size() {
		return nil, backend.New(backend.CodeOutOfRange, "read offset beyond end of file", nil)
	}
	if offset == fi.Size() {
		return []byte{}, nil
	}

	buf := make([]byte, size)
	n, err := f.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, backend.New(backend.CodeIO, "read", err)
	}
	return buf[:n], nil
}

func (b *Backend) Mknod(ctx context.Context, path string, kind backend.Kind, perm uint32) error {
	full := b.resolve(path)

	if _, err := os.Lstat(full); err == nil {
		return backend.New(backend.CodeAlreadyExists, "mknod: already exists", nil)
	}

	switch kind {
	case backend.KindDirectory:
		if err := os.Mkdir(full, os.FileMode(perm)); err != nil {
			return translateErr(err)
		}
	case backend.KindRegularFile:
		f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, os.FileMode(perm))
		if err != nil {
			return translateErr(err)
		}
		f.Close()
	default:
		return backend.New(backend.CodeUnsupported, "mknod: unsupported kind", nil)
	}

	return nil
}

func (b *Backend) Statfs(ctx context.Context) (backend.Stats, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(b.Dir, &st); err != nil {
		return backend.Stats{}, backend.New(backend.CodeBackendUnavailable, "statfs", err)
	}

	return backend.Stats{
		TotalBlocks: uint64(st.Blocks),
		FreeBlocks:  uint64(st.Bfree),
		TotalFiles:  uint64(st.Files),
		FreeFiles:   uint64(st.Ffree),
		BlockSize:   uint32(st.Bsize),
		FragSize:    uint32(st.Bsize),
		MaxNameLen:  255,
	}, nil
}

func attrsFromFileInfo(fi os.FileInfo, forceDir bool) backend.Attributes {
	kind := backend.KindRegularFile
	switch {
	case forceDir || fi.IsDir():
		kind = backend.KindDirectory
	case fi.Mode()&os.ModeSymlink != 0:
		kind = backend.KindSymlink
	case fi.Mode()&os.ModeNamedPipe != 0:
		kind = backend.KindNamedPipe
	case fi.Mode()&os.ModeSocket != 0:
		kind = backend.KindSocket
	case fi.Mode()&os.ModeDevice != 0:
		if fi.Mode()&os.ModeCharDevice != 0 {
			kind = backend.KindCharDevice
		} else {
			kind = backend.KindBlockDevice
		}
	}

	attr := backend.Attributes{
		Size:  uint64(fi.Size()),
		Mtime: fi.ModTime(),
		Kind:  kind,
		Perm:  uint32(fi.Mode().Perm()),
		Nlink: 1,
	}

	if sys, ok := fi.Sys().(*syscall.Stat_t); ok {
		attr.Blocks = uint64(sys.Blocks)
		attr.Nlink = uint32(sys.Nlink)
		attr.Uid = sys.Uid
		attr.Gid = sys.Gid
		attr.Rdev = uint32(sys.Rdev)
		attr.Atime = statTimeToTime(sys.Atim)
		attr.Ctime = statTimeToTime(sys.Ctim)
	}
	attr.Crtime = attr.Mtime

	return attr
}

func statTimeToTime(ts syscall.Timespec) time.Time {
	return time.Unix(ts.Sec, ts.Nsec)
}

func translateErr(err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return backend.New(backend.CodeNotFound, "not found", err)
	case errors.Is(err, os.ErrPermission):
		return backend.New(backend.CodePermissionDenied, "permission denied", err)
	case errors.Is(err, os.ErrExist):
		return backend.New(backend.CodeAlreadyExists, "already exists", err)
	default:
		return backend.New(backend.CodeIO, "local backend i/o error", err)
	}
}
