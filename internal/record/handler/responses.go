package handler

import (
	"casefile/internal/record/models"
)

// SubmitResponse is the HTTP response for POST /records/{id}/submissions.
type SubmitResponse struct {
	RecordID string               `json:"recordId"`
	Sections []models.SectionMeta `json:"sections"`
}

// FromSubmission builds the response covering exactly the submitted keys.
func FromSubmission(record *models.Record, keys []models.SectionKey) *SubmitResponse {
	out := &SubmitResponse{
		RecordID: record.ID.String(),
		Sections: make([]models.SectionMeta, 0, len(keys)),
	}
	for _, key := range keys {
		if row := record.Section(key); row != nil {
			out.Sections = append(out.Sections, row.Meta())
		}
	}
	return out
}
