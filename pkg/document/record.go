package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

const unknownTitle = "Unknown"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Record is the extractor's JSON output for one document.
//
// Two generations of the extractor exist in the wild: older output only
// carries arxiv_id and full_text, newer output carries document_id, title and
// per-page text. Both are accepted.
type Record struct {
	DocumentID string         `json:"document_id,omitempty"`
	ArxivID    string         `json:"arxiv_id,omitempty"`
	Title      string         `json:"title,omitempty"`
	Filename   string         `json:"filename,omitempty"`
	NumPages   int            `json:"num_pages,omitempty" validate:"gte=0"`
	Metadata   RecordMetadata `json:"metadata"`
	FullText   *string        `json:"full_text,omitempty"`
	Pages      []RecordPage   `json:"pages,omitempty" validate:"dive"`
}

// RecordMetadata is the PDF metadata block written by the extractor.
type RecordMetadata struct {
	Title string `json:"title,omitempty"`
}

// RecordPage is one page entry of a Record.
type RecordPage struct {
	PageNumber int     `json:"page_number" validate:"gte=0"`
	Text       *string `json:"text"`
}

// ID returns the document identifier, falling back to the arXiv id.
func (r *Record) ID() string {
	if r.DocumentID != "" {
		return r.DocumentID
	}
	return r.ArxivID
}

// Validate checks the structural constraints of the record.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.ID()) == "" {
		return fmt.Errorf("%w: record has neither document_id nor arxiv_id", ErrExtraction)
	}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: record %s: %v", ErrExtraction, r.ID(), err)
	}
	return nil
}

// Split converts the wire record into a Document and its TextRecord.
//
// Per-page text wins over full_text. An empty pages array with no full_text
// is an empty document. When neither field is present the returned
// TextRecord has nil Pages, which the chunker rejects as malformed.
func (r *Record) Split() (Document, *TextRecord) {
	title := r.Title
	if title == "" {
		title = r.Metadata.Title
	}
	if strings.TrimSpace(title) == "" {
		title = unknownTitle
	}

	doc := Document{
		ID:        r.ID(),
		Title:     title,
		SourceRef: r.Filename,
		NumPages:  r.NumPages,
	}

	rec := &TextRecord{DocumentID: doc.ID}
	switch {
	case len(r.Pages) > 0:
		rec.Pages = make([]Page, 0, len(r.Pages))
		for _, p := range r.Pages {
			if p.Text == nil {
				// A page without a text field poisons the whole record.
				rec.Pages = nil
				break
			}
			rec.Pages = append(rec.Pages, Page{PageNumber: p.PageNumber, Text: *p.Text})
		}
	case r.FullText != nil:
		rec.Pages = []Page{{PageNumber: 1, Text: *r.FullText}}
	case r.Pages != nil:
		rec.Pages = []Page{}
	}

	if doc.NumPages == 0 {
		doc.NumPages = len(rec.Pages)
	}

	return doc, rec
}

// Parse decodes extractor output, which is either a JSON array of records or
// a single record object.
func Parse(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrExtraction)
	}

	if trimmed[0] == '[' {
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("%w: decoding record list: %v", ErrExtraction, err)
		}
		return records, nil
	}

	var record Record
	if err := json.Unmarshal(trimmed, &record); err != nil {
		return nil, fmt.Errorf("%w: decoding record: %v", ErrExtraction, err)
	}
	return []Record{record}, nil
}

// SkippedFile is an extractor output file that could not be loaded.
type SkippedFile struct {
	Path string
	Err  error
}

// LoadResult is the outcome of LoadRecords.
type LoadResult struct {
	Records []Record
	Skipped []SkippedFile
}

// LoadRecords reads extractor output from a single JSON file or from every
// *.json file in a directory. Records are de-duplicated by document id, first
// occurrence wins, so a directory holding both all_papers.json and the
// per-paper files loads each paper once. Unreadable files are reported in
// Skipped rather than failing the whole load.
func LoadRecords(path string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAcquisition, err)
	}

	var files []string
	if info.IsDir() {
		matches, err := filepath.Glob(filepath.Join(path, "*.json"))
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", path, err)
		}
		sort.Strings(matches)
		files = matches
	} else {
		files = []string{path}
	}

	result := &LoadResult{}
	seen := make(map[string]bool)
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedFile{Path: f, Err: fmt.Errorf("%w: %v", ErrExtraction, err)})
			continue
		}

		records, err := Parse(data)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedFile{Path: f, Err: err})
			continue
		}

		for _, r := range records {
			id := r.ID()
			if id != "" && seen[id] {
				continue
			}
			seen[id] = true
			result.Records = append(result.Records, r)
		}
	}

	if len(result.Records) == 0 && len(result.Skipped) > 0 {
		return result, errors.Join(ErrExtraction, result.Skipped[0].Err)
	}

	return result, nil
}
