package api

import (
	"time"

	"github.com/MigzCtrl/TireOps-sub000/internal/importer"
	"github.com/MigzCtrl/TireOps-sub000/internal/inventory"
	"github.com/MigzCtrl/TireOps-sub000/internal/match"
	"github.com/MigzCtrl/TireOps-sub000/internal/store"
)

// RowDTO is one staged row as shown in the review grid. Every field is
// directly editable.
type RowDTO struct {
	Index   int            `json:"index"`
	Name    string         `json:"name"`
	Phone   string         `json:"phone"`
	Email   string         `json:"email"`
	Vehicle *match.Vehicle `json:"vehicle,omitempty"`
}

// SessionDTO is the API representation of an import session.
type SessionDTO struct {
	ID              string         `json:"id"`
	State           importer.State `json:"state"`
	Method          string         `json:"method,omitempty"`
	Rows            []RowDTO       `json:"rows"`
	CommitableCount int            `json:"commitable_count"`
	CreatedAt       time.Time      `json:"created_at"`
}

// SessionFromModel builds the DTO snapshot for a session.
func SessionFromModel(session *importer.Session) SessionDTO {
	rows := session.Rows()
	dtos := make([]RowDTO, 0, len(rows))
	for i, row := range rows {
		dtos = append(dtos, RowDTO{
			Index:   i,
			Name:    row.Name,
			Phone:   row.Phone,
			Email:   row.Email,
			Vehicle: row.Vehicle,
		})
	}
	return SessionDTO{
		ID:              session.ID,
		State:           session.State(),
		Method:          session.Method(),
		Rows:            dtos,
		CommitableCount: session.CommitableCount(),
		CreatedAt:       session.CreatedAt,
	}
}

// AnalyzeResponse reports one extraction pass folded into the session.
type AnalyzeResponse struct {
	Session SessionDTO           `json:"session"`
	Stats   importer.IngestStats `json:"stats"`
	Method  string               `json:"method"`
}

// RowRequest carries user edits for a staged row.
type RowRequest struct {
	Name    string         `json:"name"`
	Phone   string         `json:"phone"`
	Email   string         `json:"email"`
	Vehicle *match.Vehicle `json:"vehicle"`
}

// CommitResponse reports the outcome of a customer commit.
type CommitResponse struct {
	Created  int `json:"created"`
	Vehicles int `json:"vehicles"`
}

// InventoryAnalyzeResponse returns extracted inventory candidates together
// with the duplicate warning the UI turns into a merge/add/cancel modal.
type InventoryAnalyzeResponse struct {
	Items         []inventory.Candidate `json:"items"`
	Method        string                `json:"method"`
	HasDuplicates bool                  `json:"has_duplicates"`
	Duplicates    []string              `json:"duplicates"`
}

// InventoryCommitRequest is the user's explicit merge-vs-add choice plus the
// reviewed rows.
type InventoryCommitRequest struct {
	Mode  inventory.CommitMode  `json:"mode"`
	Items []inventory.Candidate `json:"items"`
}

// ImportRecordDTO is one audit row of a past commit.
type ImportRecordDTO struct {
	ID         uint      `json:"id"`
	ImportType string    `json:"import_type"`
	Method     string    `json:"method"`
	RowCount   int       `json:"row_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// ImportRecordFromModel converts a store.ImportRecord into a DTO.
func ImportRecordFromModel(r store.ImportRecord) ImportRecordDTO {
	return ImportRecordDTO{
		ID:         r.ID,
		ImportType: r.ImportType,
		Method:     r.Method,
		RowCount:   r.RowCount,
		CreatedAt:  r.CreatedAt,
	}
}
