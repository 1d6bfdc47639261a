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

// Package clock provides a Clock abstraction so that code stamping
// timestamps onto Nodes can be tested deterministically. The filesystem
// façade uses it for the times of nodes created by mknod; the backends
// read the wall clock directly.
package clock

import "time"

// Clock abstracts time.Now so tests can control it.
type Clock interface {
	Now() time.Time
}
