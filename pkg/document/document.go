// Package document defines the documents and text records handed to the
// pipeline by the text extractor, and loads them from the extractor's JSON
// output.
package document

import "strings"

// Document is a single acquired source, e.g. one arXiv paper version.
// It is immutable once created.
type Document struct {
	// ID is the stable external identifier (e.g. "1110.2569v3").
	ID string `json:"id"`

	// Title is the human readable title, "Unknown" when the extractor found none.
	Title string `json:"title"`

	// SourceRef points back at the acquired source file.
	SourceRef string `json:"source_ref"`

	// NumPages is the page count reported by the extractor.
	NumPages int `json:"num_pages"`
}

// Page is the text of one page of a source document.
type Page struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// TextRecord is the ordered page text of a document.
//
// A nil Pages slice means the extractor produced no text field at all, which
// is a malformed record. A non-nil empty slice is a document with no text.
type TextRecord struct {
	DocumentID string `json:"document_id"`
	Pages      []Page `json:"pages"`
}

// Text joins all page text, separated by blank lines.
func (r *TextRecord) Text() string {
	parts := make([]string, 0, len(r.Pages))
	for _, p := range r.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}
