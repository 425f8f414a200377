package cache

import (
	"fmt"
	"net/url"
	"strings"
)

// PageKey uniquely identifies a cached review page.
type PageKey struct {
	// ProductID is the AppID whose reviews were requested
	ProductID int

	// Language is the requested review locale
	Language string

	// PageSize is num_per_page
	PageSize int

	// Cursor is the cursor sent with the request ("*" for the first page)
	Cursor string
}

// String generates a deterministic cache key string.
// Format: review:page:product:lang=xx:n=20:cursor=escaped
//
// Example:
//
//	review:page:252490:lang=russian:n=20:cursor=%2A
func (k PageKey) String() string {
	parts := []string{"review", "page", fmt.Sprintf("%d", k.ProductID)}

	if k.Language != "" {
		parts = append(parts, "lang="+k.Language)
	}
	if k.PageSize > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", k.PageSize))
	}

	// Cursors are base64-ish and may contain ':' once decoded by proxies
	parts = append(parts, "cursor="+url.QueryEscape(k.Cursor))

	return strings.Join(parts, ":")
}
