package domain

import (
	"strconv"
	"strings"
)

// DefaultPageSize is the catalog page size when none is given.
const DefaultPageSize = 5

// QueryKind is the parsed shape of a catalog query.
type QueryKind int

// Query kinds, produced only by ParseQuery.
const (
	// QueryAll lists every visible document.
	QueryAll QueryKind = iota

	// QueryByID looks up one document by numeric id.
	QueryByID

	// QueryByTag matches documents with a tag containing the needle.
	QueryByTag

	// QueryByName matches documents whose title contains the needle.
	QueryByName
)

// String returns the kind name.
func (k QueryKind) String() string {
	switch k {
	case QueryAll:
		return "all"
	case QueryByID:
		return "id"
	case QueryByTag:
		return "tag"
	case QueryByName:
		return "name"
	default:
		return unknownDescription
	}
}

// Query is a parsed catalog query.
type Query struct {
	Kind QueryKind

	// ID is set for QueryByID.
	ID int64

	// Needle is the lowercased substring for QueryByTag and QueryByName.
	Needle string
}

// ParseQuery turns raw operator input into a Query.
//
//   - empty or whitespace: QueryAll
//   - digits only: QueryByID
//   - "#x" with something after the '#': QueryByTag
//   - anything else: QueryByName
func ParseQuery(raw string) Query {
	q := strings.TrimSpace(raw)
	if q == "" {
		return Query{Kind: QueryAll}
	}
	if isDigits(q) {
		if id, err := strconv.ParseInt(q, 10, 64); err == nil {
			return Query{Kind: QueryByID, ID: id}
		}
	}
	if strings.HasPrefix(q, "#") && len(q) > 1 {
		return Query{Kind: QueryByTag, Needle: strings.ToLower(q[1:])}
	}
	return Query{Kind: QueryByName, Needle: strings.ToLower(q)}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// SearchPage is one page of catalog results.
type SearchPage struct {
	// Documents on this page, newest first, unique by id.
	Documents []Document

	// Total is the number of matching documents across all pages.
	Total int

	// Page is the 1-based page number actually served.
	Page int

	// PageSize is the page size actually used.
	PageSize int

	// NoActiveCollection is set when the operator has no active collection.
	// Documents is then empty and Total is zero.
	NoActiveCollection bool
}

// Pages returns the number of pages for Total at PageSize.
func (p *SearchPage) Pages() int {
	if p.PageSize <= 0 || p.Total == 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// HasNext reports whether another page follows this one.
func (p *SearchPage) HasNext() bool {
	return p.Page < p.Pages()
}

// NormalisePaging clamps page and size to usable values.
func NormalisePaging(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	return page, size
}
