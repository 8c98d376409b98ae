package postgres

import (
	"encoding/json"
	"time"

	"github.com/riskops/backend/domain"
)

// riskRow mirrors the risks table. Tags and metadata are serialized JSON;
// the mapping to domain.RiskState is bidirectional and lossless.
type riskRow struct {
	ID              int64
	RiskID          string
	Title           string
	Description     string
	Category        string
	Probability     int
	Impact          int
	Status          string
	OrganizationID  int64
	OwnerID         int64
	CreatedBy       int64
	RiskType        string
	MitigationPlan  string
	ContingencyPlan string
	ReviewDate      *time.Time
	LastReviewDate  *time.Time
	Tags            []byte
	Metadata        []byte
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

var riskColumns = []string{
	"id", "risk_id", "title", "description", "category",
	"probability", "impact", "status",
	"organization_id", "owner_id", "created_by", "risk_type",
	"mitigation_plan", "contingency_plan",
	"review_date", "last_review_date",
	"tags", "metadata", "created_at", "updated_at",
}

func rowFromState(state domain.RiskState) (riskRow, error) {
	tags, err := marshalJSON(state.Tags)
	if err != nil {
		return riskRow{}, err
	}
	metadata, err := marshalJSON(state.Metadata)
	if err != nil {
		return riskRow{}, err
	}
	return riskRow{
		ID:              state.ID,
		RiskID:          state.RiskID,
		Title:           state.Title,
		Description:     state.Description,
		Category:        state.Category,
		Probability:     state.Probability,
		Impact:          state.Impact,
		Status:          state.Status,
		OrganizationID:  state.OrganizationID,
		OwnerID:         state.OwnerID,
		CreatedBy:       state.CreatedBy,
		RiskType:        state.RiskType,
		MitigationPlan:  state.MitigationPlan,
		ContingencyPlan: state.ContingencyPlan,
		ReviewDate:      state.ReviewDate,
		LastReviewDate:  state.LastReviewDate,
		Tags:            tags,
		Metadata:        metadata,
		CreatedAt:       state.CreatedAt,
		UpdatedAt:       state.UpdatedAt,
	}, nil
}

func (row riskRow) toState() (domain.RiskState, error) {
	var tags []string
	if len(row.Tags) > 0 {
		if err := json.Unmarshal(row.Tags, &tags); err != nil {
			return domain.RiskState{}, err
		}
	}
	var metadata map[string]interface{}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			return domain.RiskState{}, err
		}
	}
	return domain.RiskState{
		ID:              row.ID,
		RiskID:          row.RiskID,
		Title:           row.Title,
		Description:     row.Description,
		Category:        row.Category,
		Probability:     row.Probability,
		Impact:          row.Impact,
		Status:          row.Status,
		OrganizationID:  row.OrganizationID,
		OwnerID:         row.OwnerID,
		CreatedBy:       row.CreatedBy,
		RiskType:        row.RiskType,
		MitigationPlan:  row.MitigationPlan,
		ContingencyPlan: row.ContingencyPlan,
		ReviewDate:      row.ReviewDate,
		LastReviewDate:  row.LastReviewDate,
		Tags:            tags,
		Metadata:        metadata,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}, nil
}

func marshalJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []string:
		if len(v) == 0 {
			return nil, nil
		}
	case map[string]interface{}:
		if len(v) == 0 {
			return nil, nil
		}
	}
	return json.Marshal(value)
}
