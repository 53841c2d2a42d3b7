// Package pagination provides opaque cursor handling for paginated list
// results. A cursor encodes the last key of the previous page over the
// table's stable iteration order; clients treat it as an opaque token.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// DefaultLimit is the page size used by list operations
	DefaultLimit = 50

	// MaxLimit is the maximum allowed page size
	MaxLimit = 200

	cursorPrefix = "k:"
)

// EncodeCursor encodes the last returned key as an opaque cursor token
func EncodeCursor(lastKey string) string {
	return base64.URLEncoding.EncodeToString([]byte(cursorPrefix + lastKey))
}

// DecodeCursor decodes an opaque cursor token back to the key it marks
func DecodeCursor(cursor string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("undecodable cursor: %w", err)
	}
	decoded := string(raw)
	if !strings.HasPrefix(decoded, cursorPrefix) {
		return "", fmt.Errorf("unrecognized cursor format")
	}
	return decoded[len(cursorPrefix):], nil
}

// Slice returns one page of keys starting after the position marked by
// cursor. An empty cursor means "from the start". The returned nextCursor is
// empty when no items remain beyond the page boundary.
//
// A cursor whose key is no longer present resumes from the start of the
// ordered slice rather than failing: registry mutation between pages is
// allowed and the iteration order is only required to be stable for
// unchanged tables.
func Slice(keys []string, cursor string, limit int) (page []string, nextCursor string, err error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	start := 0
	if cursor != "" {
		lastKey, derr := DecodeCursor(cursor)
		if derr != nil {
			return nil, "", derr
		}
		for i, k := range keys {
			if k == lastKey {
				start = i + 1
				break
			}
		}
	}

	if start >= len(keys) {
		return []string{}, "", nil
	}

	end := start + limit
	if end > len(keys) {
		end = len(keys)
	}

	page = keys[start:end]
	if end < len(keys) {
		nextCursor = EncodeCursor(keys[end-1])
	}
	return page, nextCursor, nil
}
