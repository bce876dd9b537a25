// Package documents turns uploaded job descriptions and resumes into plain text.
package documents

import (
	"errors"
	"fmt"
	"strings"
)

// MediaType is the closed set of document formats the screener can read.
type MediaType int

const (
	Unknown MediaType = iota
	PDF
	Text
	DOCX
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// ErrUnsupportedMediaType is returned by the upload boundary for anything that is not PDF, text or DOCX.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

// Document is an uploaded file. It is never modified after Load.
type Document struct {
	Name string
	Type MediaType
	Data []byte
}

// IsZero reports whether the document carries neither a name nor any data.
func (d Document) IsZero() bool {
	return d.Name == "" && len(d.Data) == 0
}

func (t MediaType) String() string {
	switch t {
	case PDF:
		return "pdf"
	case Text:
		return "text"
	case DOCX:
		return "docx"
	default:
		return "unknown"
	}
}

// ContentType returns the MIME type used for the media type.
func (t MediaType) ContentType() string {
	switch t {
	case PDF:
		return "application/pdf"
	case Text:
		return "text/plain; charset=utf-8"
	case DOCX:
		return docxContentType
	default:
		return "application/octet-stream"
	}
}

// ParseMediaType accepts a short name ("pdf", "txt") or a MIME type.
func ParseMediaType(s string) (MediaType, error) {
	value := strings.ToLower(strings.TrimSpace(s))
	if idx := strings.Index(value, ";"); idx != -1 {
		value = strings.TrimSpace(value[:idx])
	}

	switch value {
	case "pdf", "application/pdf":
		return PDF, nil
	case "text", "txt", "text/plain":
		return Text, nil
	case "docx", docxContentType:
		return DOCX, nil
	default:
		return Unknown, fmt.Errorf("%w: %q", ErrUnsupportedMediaType, s)
	}
}
