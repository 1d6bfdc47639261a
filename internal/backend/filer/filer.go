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

// Package filer implements backend.Backend over a distributed filer's
// JSON-over-HTTP directory-listing API (the SeaweedFS filer wire
// format). No ecosystem client for this protocol was found among the
// retrieved examples, so the backend talks HTTP directly; see
// DESIGN.md for the justification.
package filer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/divinerapier/ossfs/internal/backend"
)

const defaultListLimit = 100000

// listEntry mirrors one element of the filer's "Entries" array.
type listEntry struct {
	FullPath string `json:"FullPath"`
	Mtime    string `json:"Mtime"`
	Crtime   string `json:"Crtime"`
	Chunks   []struct {
		Size uint64 `json:"size"`
	} `json:"chunks"`
}

// listResponse mirrors the filer's directory-listing JSON body.
type listResponse struct {
	Path    string      `json:"Path"`
	Entries []listEntry `json:"Entries"`
}

// Options configures a Backend.
type Options struct {
	// BaseURL is the filer's HTTP endpoint, e.g. "http://filer:8888".
	BaseURL string
	Client  *http.Client
}

// Backend is a backend.Backend talking to a SeaweedFS-style filer.
type Backend struct {
	baseURL string
	client  *http.Client
}

// New constructs a Backend. It does not probe connectivity at
// construction: the filer contract affords no cheap bootstrap check
// analogous to S3's HeadBucket, so reachability surfaces lazily on the
// first request as a BackendUnavailable error.
func New(opts Options) *Backend {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Backend{baseURL: strings.TrimSuffix(opts.BaseURL, "/"), client: client}
}

func (b *Backend) Root() backend.Node {
	now := time.Now()
	return backend.Node{
		Path: "/",
		Attr: backend.Attributes{Kind: backend.KindDirectory, Perm: 0755, Nlink: 1, Mtime: now, Ctime: now, Crtime: now},
	}
}

func (b *Backend) GetChildren(ctx context.Context, p string) ([]backend.Node, error) {
	u := b.baseURL + normalizeDir(p) + "?limit=" + strconv.Itoa(defaultListLimit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, backend.New(backend.CodeIO, "build filer request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, backend.New(backend.CodeBackendUnavailable, "filer request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, backend.New(backend.CodeNotFound, "filer: not found", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backend.New(backend.CodeBackendUnavailable, fmt.Sprintf("filer: unexpected status %d", resp.StatusCode), nil)
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, backend.New(backend.CodeIO, "decode filer listing", err)
	}

	out := make([]backend.Node, 0, len(lr.Entries))
	for _, e := range lr.Entries {
		out = append(out, nodeFromEntry(e))
	}
	return out, nil
}

func (b *Backend) GetNode(ctx context.Context, p string) (backend.Node, error) {
	u := b.baseURL + normalizePath(p)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return backend.Node{}, backend.New(backend.CodeIO, "build filer request", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return backend.Node{}, backend.New(backend.CodeBackendUnavailable, "filer request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return backend.Node{}, backend.New(backend.CodeNotFound, "filer: not found", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return backend.Node{}, backend.New(backend.CodeBackendUnavailable, fmt.Sprintf("filer: unexpected status %d", resp.StatusCode), nil)
	}

	kind := backend.KindRegularFile
	if resp.Header.Get("X-Filer-Isdir") == "true" {
		kind = backend.KindDirectory
	}

	size, _ := strconv.ParseUint(resp.Header.Get("Content-Length"), 10, 64)
	mtime := time.Now()
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			mtime = t
		}
	}

	perm := uint32(0644)
	if kind == backend.KindDirectory {
		perm = 0755
	}

	return backend.Node{
		Path: p,
		Attr: backend.Attributes{Kind: kind, Perm: perm, Nlink: 1, Size: size, Mtime: mtime, Ctime: mtime, Crtime: mtime},
	}, nil
}

func (b *Backend) Read(ctx context.Context, p string, offset int64, size int) ([]byte, error) {
	u := b.baseURL + normalizePath(p)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, backend.New(backend.CodeIO, "build filer request", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+int64(size)-1))

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, backend.New(backend.CodeBackendUnavailable, "filer request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
	case http.StatusRequestedRangeNotSatisfiable:
		return []byte{}, nil
	case http.StatusNotFound:
		return nil, backend.New(backend.CodeNotFound, "filer: not found", nil)
	default:
		return nil, backend.New(backend.CodeBackendUnavailable, fmt.Sprintf("filer: unexpected status %d", resp.StatusCode), nil)
	}

	buf := make([]byte, size)
	n, err := io.ReadFull(resp.Body, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, backend.New(backend.CodeIO, "read filer response body", err)
	}
	return buf[:n], nil
}

func (b *Backend) Mknod(ctx context.Context, p string, kind backend.Kind, perm uint32) error {
	if _, err := b.GetNode(ctx, p); err == nil {
		return backend.New(backend.CodeAlreadyExists, "mknod: already exists", nil)
	}

	u := b.baseURL + normalizePath(p)
	if kind == backend.KindDirectory {
		u = b.baseURL + normalizeDir(p)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return backend.New(backend.CodeIO, "build filer request", err)
	}

	switch kind {
	case backend.KindDirectory:
		q := req.URL.Query()
		q.Set("mode", strconv.FormatUint(uint64(perm), 8))
		req.URL.RawQuery = q.Encode()
	case backend.KindRegularFile:
		// empty-body POST creates an empty file entry
	default:
		return backend.New(backend.CodeUnsupported, "mknod: unsupported kind for filer backend", nil)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return backend.New(backend.CodeBackendUnavailable, "filer request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return backend.New(backend.CodeBackendUnavailable, fmt.Sprintf("filer: mknod failed with status %d", resp.StatusCode), nil)
	}
	return nil
}

func (b *Backend) Statfs(ctx context.Context) (backend.Stats, error) {
	return backend.Stats{
		TotalBlocks: 1 << 40,
		FreeBlocks:  1 << 40,
		TotalFiles:  1 << 40,
		FreeFiles:   1 << 40,
		BlockSize:   4096,
		FragSize:    4096,
		MaxNameLen:  1024,
	}, nil
}

func nodeFromEntry(e listEntry) backend.Node {
	isDir := len(e.Chunks) == 0
	kind := backend.KindRegularFile
	perm := uint32(0644)
	if isDir {
		kind = backend.KindDirectory
		perm = 0755
	}

	var size uint64
	for _, c := range e.Chunks {
		size += c.Size
	}

	mtime := parseFilerTime(e.Mtime)
	crtime := parseFilerTime(e.Crtime)
	if crtime.IsZero() {
		crtime = mtime
	}

	return backend.Node{
		Path: e.FullPath,
		Attr: backend.Attributes{
			Kind:   kind,
			Perm:   perm,
			Nlink:  1,
			Size:   size,
			Mtime:  mtime,
			Ctime:  mtime,
			Crtime: crtime,
		},
	}
}

// parseFilerTime accepts either an RFC3339 timestamp or a raw Unix
// seconds count, since SeaweedFS filer deployments vary in which form
// they emit depending on version.
func parseFilerTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0)
	}
	return time.Time{}
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Path: path.Clean(p)}).EscapedPath()
}

func normalizeDir(p string) string {
	np := normalizePath(p)
	if !strings.HasSuffix(np, "/") {
		np += "/"
	}
	return np
}

