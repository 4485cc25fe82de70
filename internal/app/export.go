package app

import (
	"encoding/json"
	"io"
	"time"

	"exam-simulator/internal/domain"
)

// BuildExport wraps a result in the downloadable artifact envelope.
func BuildExport(result domain.ExamResult, now time.Time) domain.ResultExport {
	return domain.ResultExport{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Exam:        domain.ExamID,
		Result:      result,
	}
}

// WriteExport serializes the artifact as indented JSON, the form offered to
// the candidate as a download.
func WriteExport(w io.Writer, export domain.ResultExport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(export)
}
