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

// Package mount parses the repeated "-o" mount-option flag into the map
// form the kernel-bridge mount call expects.
package mount

import "strings"

// ParseOptions parses a single comma-separated "-o" argument (e.g.
// "ro,fsname=ossfs") into m, splitting each entry on the first "=". A
// bare flag with no "=" is recorded with an empty value.
func ParseOptions(m map[string]string, s string) {
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if eq := strings.IndexByte(entry, '='); eq >= 0 {
			m[entry[:eq]] = entry[eq+1:]
		} else {
			m[entry] = ""
		}
	}
}
