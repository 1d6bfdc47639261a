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

package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInit_WritesToRotatedFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "ossfs.log")

	Init(Config{Format: "json", Severity: SeverityInfo, FilePath: logPath}, "test-mount")
	Infof("mounted %s", "testfs")

	_, err := os.Stat(logPath)
	require.NoError(t, err)
}

func TestInit_DefaultsToStderrWithoutFilePath(t *testing.T) {
	Init(Config{Format: "text", Severity: SeverityDebug}, "test-mount")
	Infof("hello")
	Debugf("debug line %d", 1)
}
