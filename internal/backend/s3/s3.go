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

// Package s3 implements backend.Backend over an S3-compatible object
// store, using the AWS SDK's list-objects-v2 / get-object / head-bucket
// APIs.
package s3

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/divinerapier/ossfs/internal/backend"
)

// Options configures construction of a Backend.
type Options struct {
	Bucket          string
	Region          string
	Endpoint        string // non-empty for S3-compatible stores, e.g. MinIO
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool

	// BootstrapTimeout bounds the HEAD-bucket reachability check performed
	// at construction. Defaults to 1 second per the spec.
	BootstrapTimeout time.Duration
}

// Backend is a backend.Backend backed by a single S3-compatible bucket.
type Backend struct {
	client *s3.S3
	bucket string
}

// New constructs a Backend and verifies the bucket is reachable via a
// bounded HEAD-bucket request. It panics on failure, since there is no
// sensible way to serve a mount whose root bucket cannot be reached.
func New(opts Options) *Backend {
	cfg := aws.NewConfig().
		WithRegion(opts.Region).
		WithS3ForcePathStyle(opts.ForcePathStyle)

	if opts.Endpoint != "" {
		cfg = cfg.WithEndpoint(opts.Endpoint)
	}
	if opts.AccessKeyID != "" {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(opts.AccessKeyID, opts.SecretAccessKey, ""))
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		panic("s3 backend: session: " + err.Error())
	}

	b := &Backend{client: s3.New(sess), bucket: opts.Bucket}

	timeout := opts.BootstrapTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if _, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(opts.Bucket)}); err != nil {
		panic(fmt.Sprintf("s3 backend: bucket %q unreachable: %v", opts.Bucket, err))
	}

	return b
}

func (b *Backend) Root() backend.Node {
	now := time.Now()
	return backend.Node{
		Path: "",
		Attr: backend.Attributes{
			Kind:  backend.KindDirectory,
			Perm:  0755,
			Nlink: 1,
			Mtime: now,
			Ctime: now,
			Crtime: now,
		},
	}
}

func (b *Backend) GetChildren(ctx context.Context, p string) ([]backend.Node, error) {
	prefix := normalizePrefix(p)

	var out []backend.Node
	var dirs []backend.Node
	var files []backend.Node

	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
		MaxKeys:   aws.Int64(1000),
	}

	err := b.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		now := time.Now()
		for _, cp := range page.CommonPrefixes {
			dirs = append(dirs, backend.Node{
				Path: aws.StringValue(cp.Prefix),
				Attr: backend.Attributes{Kind: backend.KindDirectory, Perm: 0755, Nlink: 1, Mtime: now, Ctime: now, Crtime: now},
			})
		}
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			if key == prefix {
				continue // the directory marker object itself, not a child
			}
			mtime := now
			if obj.LastModified != nil {
				mtime = *obj.LastModified
			}
			files = append(files, backend.Node{
				Path: key,
				Attr: backend.Attributes{
					Kind:  backend.KindRegularFile,
					Perm:  0644,
					Nlink: 1,
					Size:  uint64(aws.Int64Value(obj.Size)),
					Mtime: mtime,
					Ctime: mtime,
					Crtime: mtime,
				},
			})
		}
		return true
	})
	if err != nil {
		return nil, translateErr(err)
	}

	// Directories before files, per the spec's end-to-end listing scenario.
	out = append(out, dirs...)
	out = append(out, files...)
	return out, nil
}

func (b *Backend) GetNode(ctx context.Context, p string) (backend.Node, error) {
	if p == "" || p == "/" {
		return b.Root(), nil
	}

	key := strings.TrimPrefix(p, "/")
	head, err := b.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			// Might be a "directory" denoted only by a common prefix; probe
			// by listing with the key as prefix.
			dirPrefix := strings.TrimSuffix(key, "/") + "/"
			out, listErr := b.client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
				Bucket:  aws.String(b.bucket),
				Prefix:  aws.String(dirPrefix),
				MaxKeys: aws.Int64(1),
			})
			if listErr == nil && (len(out.Contents) > 0 || len(out.CommonPrefixes) > 0) {
				now := time.Now()
				return backend.Node{
					Path: dirPrefix,
					Attr: backend.Attributes{Kind: backend.KindDirectory, Perm: 0755, Nlink: 1, Mtime: now, Ctime: now, Crtime: now},
				}, nil
			}
		}
		return backend.Node{}, translateErr(err)
	}

	mtime := time.Now()
	if head.LastModified != nil {
		mtime = *head.LastModified
	}
	return backend.Node{
		Path: key,
		Attr: backend.Attributes{
			Kind:  backend.KindRegularFile,
			Perm:  0644,
			Nlink: 1,
			Size:  uint64(aws.Int64Value(head.ContentLength)),
			Mtime: mtime,
			Ctime: mtime,
			Crtime: mtime,
		},
	}, nil
}

func (b *Backend) Read(ctx context.Context, p string, offset int64, size int) ([]byte, error) {
	key := strings.TrimPrefix(p, "/")
	rangeHeader := fmt.Sprintf("bytes=%d-%d", offset, offset+int64(size)-1)

	out, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Range:  aws.String(rangeHeader),
	})
	if err != nil {
		if isInvalidRange(err) {
			return []byte{}, nil
		}
		return nil, translateErr(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, backend.New(backend.CodeIO, "read object body", err)
	}
	return data, nil
}

func (b *Backend) Mknod(ctx context.Context, p string, kind backend.Kind, perm uint32) error {
	key := strings.TrimPrefix(p, "/")

	switch kind {
	case backend.KindDirectory:
		key = strings.TrimSuffix(key, "/") + "/"
	case backend.KindRegularFile:
		// proceed with an empty object
	default:
		return backend.New(backend.CodeUnsupported, "mknod: unsupported kind for s3 backend", nil)
	}

	if _, err := b.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{Bucket: aws.String(b.bucket), Key: aws.String(key)}); err == nil {
		return backend.New(backend.CodeAlreadyExists, "mknod: already exists", nil)
	}

	_, err := b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   strings.NewReader(""),
	})
	if err != nil {
		return translateErr(err)
	}
	return nil
}

func (b *Backend) Statfs(ctx context.Context) (backend.Stats, error) {
	// Object stores have no meaningful block/inode budget; report fixed,
	// effectively unlimited values, as the spec allows.
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

func normalizePrefix(p string) string {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return ""
	}
	return strings.TrimSuffix(p, "/") + "/"
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if ok := asAWSErr(err, &aerr); ok {
		return aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound"
	}
	return false
}

func isInvalidRange(err error) bool {
	var aerr awserr.Error
	if ok := asAWSErr(err, &aerr); ok {
		return aerr.Code() == "InvalidRange"
	}
	return false
}

func asAWSErr(err error, out *awserr.Error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		*out = aerr
		return true
	}
	return false
}

func translateErr(err error) error {
	var aerr awserr.Error
	if asAWSErr(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
			return backend.New(backend.CodeNotFound, "s3: not found", err)
		case "AccessDenied":
			return backend.New(backend.CodePermissionDenied, "s3: access denied", err)
		default:
			return backend.New(backend.CodeBackendUnavailable, "s3: "+aerr.Code(), err)
		}
	}
	return backend.New(backend.CodeIO, "s3 backend i/o error", err)
}
