package documents

import (
	"context"
	"errors"
	"fmt"
)

// Extractor converts raw document bytes of one media type into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, data []byte) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, data []byte) (string, error) {
	return f(ctx, data)
}

// DecodeError reports a document whose bytes could not be turned into text.
type DecodeError struct {
	Name string
	Type MediaType
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s document %q: %v", e.Type, e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Registry dispatches extraction on the document media type.
type Registry map[MediaType]Extractor

// DefaultRegistry returns a registry with every supported media type.
func DefaultRegistry() Registry {
	return Registry{
		PDF:  ExtractorFunc(extractPDF),
		Text: ExtractorFunc(extractText),
		DOCX: ExtractorFunc(extractDOCX),
	}
}

var defaultRegistry = DefaultRegistry()

// Extract returns the plain text of the document using the default registry.
func Extract(ctx context.Context, doc Document) (string, error) {
	return defaultRegistry.Extract(ctx, doc)
}

// Extract returns the plain text of the document. Decoding failures are reported
// as *DecodeError; context cancellation is returned as is.
func (r Registry) Extract(ctx context.Context, doc Document) (string, error) {
	extractor, ok := r[doc.Type]
	if !ok {
		return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedMediaType, doc.Type, doc.Name)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	text, err := extractor.Extract(ctx, doc.Data)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("extract %q: %w", doc.Name, err)
		}
		return "", &DecodeError{Name: doc.Name, Type: doc.Type, Err: err}
	}

	return text, nil
}
