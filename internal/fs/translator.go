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
	"os"
	"syscall"
	"time"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/divinerapier/ossfs/internal/backend"
	"github.com/divinerapier/ossfs/internal/logger"
	"github.com/divinerapier/ossfs/metrics"
)

// attributesExpiration is how long the kernel bridge may cache attributes
// and directory entries without revalidating. The façade never mutates
// spontaneously, so this can be generous.
const attributesExpiration = 365 * 24 * time.Hour

// Server adapts a Filesystem to fuseutil.FileSystem, the interface the
// kernel bridge drives directly. Every method translates op fields to a
// Filesystem call and maps the returned domain error to the bridge's
// numeric error codes.
type Server struct {
	fuseutil.NotImplementedFileSystem

	fs   *Filesystem
	name string
}

var _ fuseutil.FileSystem = (*Server)(nil)

// NewServer wraps fs as a fuseutil.FileSystem labelled name. The label is
// stored on the Server only; the mount options are built by the caller.
func NewServer(fs *Filesystem, name string) *Server {
	return &Server{fs: fs, name: name}
}

func (s *Server) Init(ctx context.Context, op *fuseops.InitOp) error {
	return nil
}

func (s *Server) Destroy() {}

func (s *Server) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) (err error) {
	defer metrics.Track(metrics.OpLookup, &err)()

	node, lookupErr := s.fs.Lookup(ctx, uint64(op.Parent), op.Name)
	if lookupErr != nil {
		err = translateErr(lookupErr)
		return err
	}

	op.Entry.Child = fuseops.InodeID(node.Inode)
	op.Entry.Attributes = attributesFromNode(node)
	op.Entry.AttributesExpiration = time.Now().Add(attributesExpiration)
	op.Entry.EntryExpiration = op.Entry.AttributesExpiration
	return nil
}

func (s *Server) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) (err error) {
	defer metrics.Track(metrics.OpGetAttr, &err)()

	node, getErr := s.fs.GetAttr(ctx, uint64(op.Inode))
	if getErr != nil {
		err = translateErr(getErr)
		return err
	}

	op.Attributes = attributesFromNode(node)
	op.AttributesExpiration = time.Now().Add(attributesExpiration)
	return nil
}

func (s *Server) ForgetInode(ctx context.Context, op *fuseops.ForgetInodeOp) error {
	// The inode graph retains every Node for the process lifetime (no
	// unlink in scope), so there is nothing to release here.
	return nil
}

func (s *Server) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	if _, err := s.fs.GetAttr(ctx, uint64(op.Inode)); err != nil {
		return translateErr(err)
	}
	op.Handle = fuseops.HandleID(s.fs.OpenHandle(uint64(op.Inode), 0))
	return nil
}

func (s *Server) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) (err error) {
	defer metrics.Track(metrics.OpReadDir, &err)()

	ino, lookupErr := s.fs.LookupHandle(uint64(op.Handle))
	if lookupErr != nil {
		err = translateErr(lookupErr)
		return err
	}

	children, readErr := s.fs.ReadDir(ctx, ino, int(op.Offset))
	if readErr != nil {
		err = translateErr(readErr)
		return err
	}

	for i, child := range children {
		dirent := fuseops.Dirent{
			Offset: op.Offset + fuseops.DirOffset(i) + 1,
			Inode:  fuseops.InodeID(child.Inode),
			Name:   baseName(child.Path),
			Type:   direntType(child.Attr.Kind),
		}
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], dirent)
		if n == 0 {
			break
		}
		op.BytesRead += n
	}
	return nil
}

func (s *Server) ReleaseDirHandle(ctx context.Context, op *fuseops.ReleaseDirHandleOp) error {
	if err := s.fs.ReleaseHandle(uint64(op.Handle)); err != nil {
		return translateErr(err)
	}
	return nil
}

func (s *Server) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	if _, err := s.fs.GetAttr(ctx, uint64(op.Inode)); err != nil {
		return translateErr(err)
	}
	op.Handle = fuseops.HandleID(s.fs.OpenHandle(uint64(op.Inode), 0))
	op.KeepPageCache = true
	return nil
}

func (s *Server) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) (err error) {
	defer metrics.Track(metrics.OpRead, &err)()

	ino, lookupErr := s.fs.LookupHandle(uint64(op.Handle))
	if lookupErr != nil {
		err = translateErr(lookupErr)
		return err
	}

	data, readErr := s.fs.Read(ctx, ino, op.Offset, len(op.Dst))
	if readErr != nil {
		err = translateErr(readErr)
		return err
	}

	op.BytesRead = copy(op.Dst, data)
	return nil
}

func (s *Server) ReleaseFileHandle(ctx context.Context, op *fuseops.ReleaseFileHandleOp) error {
	if err := s.fs.ReleaseHandle(uint64(op.Handle)); err != nil {
		return translateErr(err)
	}
	return nil
}

func (s *Server) MkDir(ctx context.Context, op *fuseops.MkDirOp) (err error) {
	defer metrics.Track(metrics.OpMknod, &err)()

	node, mkErr := s.fs.Mknod(ctx, uint64(op.Parent), op.Name, backend.KindDirectory, uint32(op.Mode.Perm()), 0, 0)
	if mkErr != nil {
		err = translateErr(mkErr)
		return err
	}

	op.Entry.Child = fuseops.InodeID(node.Inode)
	op.Entry.Attributes = attributesFromNode(node)
	op.Entry.AttributesExpiration = time.Now().Add(attributesExpiration)
	op.Entry.EntryExpiration = op.Entry.AttributesExpiration
	return nil
}

func (s *Server) MkNode(ctx context.Context, op *fuseops.MkNodeOp) (err error) {
	defer metrics.Track(metrics.OpMknod, &err)()

	node, mkErr := s.fs.Mknod(ctx, uint64(op.Parent), op.Name, backend.KindRegularFile, uint32(op.Mode.Perm()), 0, 0)
	if mkErr != nil {
		err = translateErr(mkErr)
		return err
	}

	op.Entry.Child = fuseops.InodeID(node.Inode)
	op.Entry.Attributes = attributesFromNode(node)
	op.Entry.AttributesExpiration = time.Now().Add(attributesExpiration)
	op.Entry.EntryExpiration = op.Entry.AttributesExpiration
	return nil
}

func (s *Server) StatFS(ctx context.Context, op *fuseops.StatFSOp) (err error) {
	defer metrics.Track(metrics.OpStatfs, &err)()

	stats, statErr := s.fs.Statfs(ctx, uint64(fuseops.RootInodeID))
	if statErr != nil {
		err = translateErr(statErr)
		return err
	}

	op.BlockSize = stats.BlockSize
	op.Blocks = stats.TotalBlocks
	op.BlocksFree = stats.FreeBlocks
	op.BlocksAvailable = stats.FreeBlocks
	op.IoSize = stats.BlockSize
	op.Inodes = stats.TotalFiles
	op.InodesFree = stats.FreeFiles
	return nil
}

func attributesFromNode(n backend.Node) fuseops.InodeAttributes {
	mode := os.FileMode(n.Attr.Perm)
	switch n.Attr.Kind {
	case backend.KindDirectory:
		mode |= os.ModeDir
	case backend.KindSymlink:
		mode |= os.ModeSymlink
	case backend.KindNamedPipe:
		mode |= os.ModeNamedPipe
	case backend.KindSocket:
		mode |= os.ModeSocket
	case backend.KindCharDevice:
		mode |= os.ModeDevice | os.ModeCharDevice
	case backend.KindBlockDevice:
		mode |= os.ModeDevice
	}

	return fuseops.InodeAttributes{
		Size:   n.Attr.Size,
		Nlink:  orOne(n.Attr.Nlink),
		Mode:   mode,
		Rdev:   n.Attr.Rdev,
		Atime:  n.Attr.Atime,
		Mtime:  n.Attr.Mtime,
		Ctime:  n.Attr.Ctime,
		Crtime: n.Attr.Crtime,
		Uid:    n.Attr.Uid,
		Gid:    n.Attr.Gid,
	}
}

func orOne(n uint32) uint32 {
	if n == 0 {
		return 1
	}
	return n
}

func baseName(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}

func direntType(kind backend.Kind) fuseops.DirentType {
	switch kind {
	case backend.KindDirectory:
		return fuseops.DT_Directory
	case backend.KindSymlink:
		return fuseops.DT_Link
	default:
		return fuseops.DT_File
	}
}

// translateErr maps a backend/domain error to the bridge's numeric error
// codes, per the error-code table in the design. Unrecognized errors are
// logged and reported as an I/O error so a bad mapping never panics the
// kernel bridge's request loop.
func translateErr(err error) error {
	switch backend.CodeOf(err) {
	case backend.CodeNotFound:
		return syscall.ENOENT
	case backend.CodeOutOfRange:
		return syscall.EINVAL
	case backend.CodeAlreadyExists:
		return syscall.EEXIST
	case backend.CodePermissionDenied:
		return syscall.EACCES
	case backend.CodeBackendUnavailable:
		return syscall.EIO
	case backend.CodeUnsupported:
		return syscall.ENOTSUP
	default:
		logger.Errorf("unmapped error from facade: %v", err)
		return syscall.EIO
	}
}
