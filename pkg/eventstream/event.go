package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeDocumentIndexed is emitted after a document has been ingested.
	EventTypeDocumentIndexed = "physrag.document.indexed"
)

// Document ingestion outcomes.
const (
	StatusIndexed = "indexed"
	StatusPartial = "partial"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// DocumentIndexedEvent is a transport-neutral event payload describing the
// ingestion of one document.
type DocumentIndexedEvent struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	EventID       string         `json:"event_id"`
	EmittedAt     time.Time      `json:"emitted_at"`
	RunID         string         `json:"run_id"`
	Document      EventDocument  `json:"document"`
	Outcome       EventOutcome   `json:"outcome"`
	Index         EventIndexMeta `json:"index"`
}

// EventDocument identifies the ingested document.
type EventDocument struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// EventOutcome counts what happened to the document's chunks.
type EventOutcome struct {
	Status  string `json:"status"`
	Chunks  int    `json:"chunks"`
	Written int    `json:"written"`
	Failed  int    `json:"failed"`
	Reason  string `json:"reason,omitempty"`
}

// EventIndexMeta describes the index the document was written to.
type EventIndexMeta struct {
	EmbeddingModel string `json:"embedding_model"`
	VectorStore    string `json:"vector_store"`
}

// NewDocumentIndexedEvent fills the envelope fields of a v1 event.
func NewDocumentIndexedEvent(runID string, doc EventDocument, outcome EventOutcome, index EventIndexMeta) *DocumentIndexedEvent {
	return &DocumentIndexedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeDocumentIndexed,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		RunID:         runID,
		Document:      doc,
		Outcome:       outcome,
		Index:         index,
	}
}
