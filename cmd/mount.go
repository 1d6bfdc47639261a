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

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacobsa/fuse"

	"github.com/divinerapier/ossfs/cfg"
	"github.com/divinerapier/ossfs/internal/backend"
	"github.com/divinerapier/ossfs/internal/backend/filer"
	"github.com/divinerapier/ossfs/internal/backend/local"
	"github.com/divinerapier/ossfs/internal/backend/s3"
	"github.com/divinerapier/ossfs/internal/fs"
	"github.com/divinerapier/ossfs/internal/logger"
	"github.com/divinerapier/ossfs/internal/mount"
	"github.com/divinerapier/ossfs/internal/perms"
	"github.com/divinerapier/ossfs/metrics"
)

func runMount(ctx context.Context, config *cfg.Config, mountPoint string) error {
	logSeverity := logger.SeverityInfo
	if config.Logging.Debug {
		logSeverity = logger.SeverityDebug
	}
	logger.Init(logger.Config{Format: "json", Severity: logSeverity, FilePath: config.Logging.LogFile}, config.AppName)

	b, err := newBackend(config.Backend)
	if err != nil {
		return fmt.Errorf("constructing backend: %w", err)
	}

	if config.Metrics.Enabled {
		go serveMetrics(config.Metrics.Addr)
	}

	uid, gid, err := perms.MyUserAndGroup()
	if err != nil {
		return fmt.Errorf("MyUserAndGroup: %w", err)
	}
	logger.Infof("serving as uid=%d gid=%d", uid, gid)

	filesystem := fs.New(b, nil)
	server := fs.NewServer(filesystem, config.AppName)

	mountCfg := fuseMountConfig(config, filesystem.InstanceID())

	logger.Infof("mounting %q at %q (instance %s)", config.Backend.Kind, mountPoint, filesystem.InstanceID())
	mfs, err := fuse.Mount(mountPoint, server, mountCfg)
	if err != nil {
		return fmt.Errorf("fuse.Mount: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Infof("received interrupt, unmounting %q", mountPoint)
		if err := fuse.Unmount(mountPoint); err != nil {
			logger.Errorf("unmount: %v", err)
		}
	}()

	if err := mfs.Join(ctx); err != nil {
		return fmt.Errorf("serving file system: %w", err)
	}
	return nil
}

func newBackend(bc cfg.BackendConfig) (backend.Backend, error) {
	var b backend.Backend

	switch bc.Kind {
	case cfg.BackendLocal:
		b = local.New(bc.Dir)
	case cfg.BackendS3:
		b = s3.New(s3.Options{
			Bucket:           bc.Bucket,
			Region:           bc.Region,
			Endpoint:         bc.Endpoint,
			AccessKeyID:      bc.AccessKeyID,
			SecretAccessKey:  bc.SecretAccessKey,
			ForcePathStyle:   bc.ForcePathStyle,
			BootstrapTimeout: bc.BootstrapTimeout,
		})
	case cfg.BackendFiler:
		b = filer.New(filer.Options{BaseURL: bc.FilerBaseURL})
	default:
		return nil, fmt.Errorf("unknown backend kind %q", bc.Kind)
	}

	if bc.StatCacheTTL > 0 {
		b = backend.WithStatCache(b, bc.StatCacheTTL)
	}
	return b, nil
}

func fuseMountConfig(config *cfg.Config, instanceID string) *fuse.MountConfig {
	parsedOptions := make(map[string]string)
	for _, o := range config.MountOptions {
		mount.ParseOptions(parsedOptions, o)
	}

	return &fuse.MountConfig{
		FSName:                  config.AppName,
		Subtype:                 "ossfs",
		VolumeName:              config.AppName + "-" + instanceID,
		Options:                 parsedOptions,
		EnableParallelDirOps:    true,
		DisableWritebackCaching: false,
		EnableReaddirplus:       true,
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logger.Infof("serving metrics on %q", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Errorf("metrics server: %v", err)
	}
}
