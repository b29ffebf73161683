package eventstream

import "context"

// Publisher publishes ingestion events to an event stream backend.
type Publisher interface {
	PublishDocumentIndexed(ctx context.Context, event *DocumentIndexedEvent) error
	Close() error
}
