package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var errEmptyPDF = errors.New("empty pdf stream")

func init() {
	// pdfcpu would otherwise create a config directory under the user's home.
	api.DisableConfigDir()
}

func extractPDF(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errEmptyPDF
	}

	text, err := readPDFText(ctx, data)
	if err == nil || ctx.Err() != nil {
		return text, err
	}

	// Some generators write broken xref tables that pdf.NewReader refuses.
	// A relaxed pdfcpu rewrite usually fixes them.
	repaired, repairErr := repairPDF(data)
	if repairErr != nil {
		return "", fmt.Errorf("%w (repair failed: %v)", err, repairErr)
	}

	return readPDFText(ctx, repaired)
}

func readPDFText(ctx context.Context, data []byte) (text string, err error) {
	// ledongthuc/pdf panics on some malformed streams instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		// Pages without a text layer (scanned images) contribute nothing.
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(pageText)
	}

	return builder.String(), nil
}

func repairPDF(data []byte) (repaired []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			repaired = nil
			err = fmt.Errorf("optimize pdf: %v", r)
		}
	}()

	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed

	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &out, cfg); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}
