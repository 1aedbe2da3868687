// Package normalisers provides text normalisation used before prompt assembly
// and conversion of imported files to plain text.
//
// Stored text may carry decomposed Unicode, control characters or invalid
// bytes; the plaintext normaliser makes it safe to send without ever failing
// a retrieval. Import converters (markdown, html) strip markup from files
// added with `mnemo doc add --file`.
package normalisers
