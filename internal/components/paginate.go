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
	"encoding/base64"
	"fmt"

	"github.com/mcpkit/mcpkit/internal/mcp"
)

// paginate slices a name-sorted item list according to an opaque cursor and
// a page limit. The cursor encodes the last returned name; limit <= 0 means
// unbounded.
func paginate[T any](items []T, name func(T) string, cursor mcp.Cursor, limit int) ([]T, mcp.Cursor, error) {
	if cursor != "" {
		last, err := base64.StdEncoding.DecodeString(string(cursor))
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", err)
		}
		after := string(last)
		start := len(items)
		for i, it := range items {
			if name(it) > after {
				start = i
				break
			}
		}
		items = items[start:]
	}

	if limit <= 0 || len(items) <= limit {
		// last page carries no cursor
		return items, "", nil
	}

	page := items[:limit]
	next := base64.StdEncoding.EncodeToString([]byte(name(page[len(page)-1])))
	return page, mcp.Cursor(next), nil
}
