// Package export serializes exposure records for archives and operator
// tooling.
package export

import (
	"context"
	"encoding/json"
	"io"

	"edgelab-hq/tessera/pkg/exposure"
)

// JSONLExporter writes exposure records as JSON lines: one record per
// line, no enclosing array. The format appends cleanly, which is what
// the retention archive needs, and standard log tooling reads it as-is.
type JSONLExporter struct{}

// NewJSONLExporter creates a JSON-lines exporter.
func NewJSONLExporter() *JSONLExporter {
	return &JSONLExporter{}
}

// Export writes records to w, one JSON document per line.
func (e *JSONLExporter) Export(ctx context.Context, records []*exposure.Record, w io.Writer) error {
	enc := json.NewEncoder(w)
	for i, record := range records {
		select {
		case <-ctx.Done():
			return exposure.NewExportError("jsonl", i, ctx.Err())
		default:
		}

		if err := enc.Encode(record); err != nil {
			return exposure.NewExportError("jsonl", len(records), err)
		}
	}
	return nil
}
