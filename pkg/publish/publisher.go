// Package publish implements the optional, disabled-by-default output
// sinks invoked once per finished segment/playlist (Segmenter) or once per
// LiveCore event, including each added partial (LiveEventPublisher). Both publishers are pure subscribers:
// removing them changes no byte the engine produces.
package publish

import "context"

// Publisher is a write-only sink for finished segment and playlist bytes.
type Publisher interface {
	Publish(ctx context.Context, key string, data []byte, contentType string) error
	Close() error
}
