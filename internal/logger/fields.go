package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldScorer is the structured log field key for the scorer variant.
	FieldScorer = "scorer"
	// FieldModel is the structured log field key for the language model identifier.
	FieldModel = "model"
	// FieldDocument is the structured log field key for a document file name.
	FieldDocument = "document"
	// FieldMediaType is the structured log field key for a document media type.
	FieldMediaType = "media_type"
	// FieldRunID is the structured log field key for a screening run.
	FieldRunID = "run_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches the provided fields to the logger.
// A nil logger is replaced by a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// ScorerFields describes the scorer variant and, for model-backed scorers, the model.
func ScorerFields(scorer, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldScorer, Value: scorer},
		StringField{Key: FieldModel, Value: model},
	)
}

// DocumentFields describes a single uploaded document.
func DocumentFields(name, mediaType string) []zap.Field {
	return StringFields(
		StringField{Key: FieldDocument, Value: name},
		StringField{Key: FieldMediaType, Value: mediaType},
	)
}

// WithScorerFields attaches the scorer fields to the provided logger.
func WithScorerFields(logger *zap.Logger, scorer, model string) *zap.Logger {
	return WithFields(logger, ScorerFields(scorer, model)...)
}
