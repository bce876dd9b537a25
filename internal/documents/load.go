package documents

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var extensions = map[string]MediaType{
	".pdf":  PDF,
	".txt":  Text,
	".text": Text,
	".md":   Text,
	".docx": DOCX,
}

var pdfMagic = []byte("%PDF-")

// DetectMediaType picks the media type from the file extension. Files without
// an extension are sniffed: a PDF header means PDF and valid UTF-8 means text.
func DetectMediaType(name string, data []byte) (MediaType, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != "" {
		if t, ok := extensions[ext]; ok {
			return t, nil
		}
		return Unknown, fmt.Errorf("%w: %q", ErrUnsupportedMediaType, name)
	}

	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return PDF, nil
	case len(data) > 0 && utf8.Valid(data):
		return Text, nil
	default:
		return Unknown, fmt.Errorf("%w: %q", ErrUnsupportedMediaType, name)
	}
}

// Load reads a single file from disk.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading document %q: %w", path, err)
	}

	name := filepath.Base(path)
	t, err := DetectMediaType(name, data)
	if err != nil {
		return Document{}, err
	}

	return Document{Name: name, Type: t, Data: data}, nil
}

// Collect loads every path in order. A directory expands to its supported
// files sorted by name; nested directories and hidden files are ignored.
// An explicitly named file of an unsupported type is an error.
func Collect(paths []string) ([]Document, error) {
	docs := make([]Document, 0, len(paths))

	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("reading document %q: %w", path, err)
		}

		if !info.IsDir() {
			doc, err := Load(path)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("reading directory %q: %w", path, err)
		}

		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || strings.HasPrefix(name, ".") {
				continue
			}
			if _, ok := extensions[strings.ToLower(filepath.Ext(name))]; !ok {
				continue
			}

			doc, err := Load(filepath.Join(path, name))
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}

	return docs, nil
}
