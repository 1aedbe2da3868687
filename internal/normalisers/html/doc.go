// Package html converts HTML files to plain text on import. Scripts,
// styles and other non-content elements are dropped, block elements become
// line breaks and entities are decoded.
package html
