// Copyright 2025 The mcpkit Authors
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

package components

import (
	"fmt"
	"regexp"
	"strings"
)

// matchTemplate matches uri against an RFC 6570 style template such as
// "file:///logs/{name}" or "db://{table}/{+rest}". Simple expressions match
// a single path segment; "+" expressions match across "/". It returns the
// extracted variables when the uri matches.
func matchTemplate(template, uri string) (map[string]string, bool) {
	re, names, err := compileTemplate(template)
	if err != nil {
		return nil, false
	}
	m := re.FindStringSubmatch(uri)
	if m == nil {
		return nil, false
	}
	vars := make(map[string]string, len(names))
	for i, name := range names {
		vars[name] = m[i+1]
	}
	return vars, true
}

var templateVar = regexp.MustCompile(`\{(\+?)([A-Za-z0-9_]+)\}`)

func compileTemplate(template string) (*regexp.Regexp, []string, error) {
	var b strings.Builder
	var names []string
	b.WriteString("^")

	rest := template
	for {
		loc := templateVar.FindStringSubmatchIndex(rest)
		if loc == nil {
			b.WriteString(regexp.QuoteMeta(rest))
			break
		}
		b.WriteString(regexp.QuoteMeta(rest[:loc[0]]))
		reserved := rest[loc[2]:loc[3]] == "+"
		names = append(names, rest[loc[4]:loc[5]])
		if reserved {
			b.WriteString("(.+)")
		} else {
			b.WriteString("([^/]+)")
		}
		rest = rest[loc[1]:]
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, nil, fmt.Errorf("invalid uri template %q: %w", template, err)
	}
	return re, names, nil
}
