package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nguyenthenguyen/docx"
)

var (
	errInvalidUTF8 = errors.New("text is not valid utf-8")

	docxParagraphEnd = regexp.MustCompile(`</w:p>`)
	docxTab          = regexp.MustCompile(`<w:tab/>`)
	docxTag          = regexp.MustCompile(`<[^>]+>`)
)

func extractText(_ context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errInvalidUTF8
	}

	return string(data), nil
}

func extractDOCX(_ context.Context, data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}
	defer doc.Close()

	return docxBodyText(doc.Editable().GetContent()), nil
}

// docxBodyText drops the WordprocessingML markup from document.xml, keeping one
// line per paragraph.
func docxBodyText(content string) string {
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = docxTab.ReplaceAllString(content, "\t")
	content = docxTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)

	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, strings.TrimRight(line, " \t"))
	}

	return strings.Join(kept, "\n")
}
