package risk

import (
	"github.com/riskops/backend/domain"
	"github.com/riskops/backend/repository"
)

// GetQuery fetches one risk by storage id.
type GetQuery struct {
	ID int64 `json:"id"`
}

func (q GetQuery) Validate() error {
	if q.ID <= 0 {
		return domain.NewValidationError("invalid get query",
			domain.FieldError{Field: "id", Message: "must be a positive integer", Value: q.ID})
	}
	return nil
}

// ListQuery selects a filtered, sorted page of risks.
type ListQuery struct {
	OrganizationID *int64   `json:"organization_id"`
	OwnerID        *int64   `json:"owner_id"`
	Statuses       []string `json:"statuses"`
	Categories     []string `json:"categories"`
	RiskLevels     []string `json:"risk_levels"`
	Tags           []string `json:"tags"`
	RiskType       string   `json:"risk_type"`
	SearchText     string   `json:"search_text"`
	SortBy         string   `json:"sort_by"`
	SortDescending bool     `json:"sort_descending"`
	Page           int      `json:"page"`
	Limit          int      `json:"limit"`
}

// Validate checks the enumerated filter values syntactically; unknown sort
// fields are tolerated and fall back to creation time.
func (q ListQuery) Validate() error {
	var fields []domain.FieldError
	for _, status := range q.Statuses {
		if _, err := domain.NewStatus(status); err != nil {
			fields = append(fields, domain.FieldError{Field: "statuses", Message: "unknown status value", Value: status})
		}
	}
	for _, category := range q.Categories {
		if _, err := domain.NewCategory(category); err != nil {
			fields = append(fields, domain.FieldError{Field: "categories", Message: "unknown category value", Value: category})
		}
	}
	for _, level := range q.RiskLevels {
		if _, _, ok := repository.LevelScoreRange(level); !ok {
			fields = append(fields, domain.FieldError{Field: "risk_levels", Message: "unknown risk level", Value: level})
		}
	}
	if q.Page < 0 {
		fields = append(fields, domain.FieldError{Field: "page", Message: "must not be negative", Value: q.Page})
	}
	if q.Limit < 0 {
		fields = append(fields, domain.FieldError{Field: "limit", Message: "must not be negative", Value: q.Limit})
	}
	if len(fields) > 0 {
		return domain.NewValidationError("invalid list query", fields...)
	}
	return nil
}

func (q ListQuery) toRepository() repository.ListQuery {
	return repository.ListQuery{
		Filter: repository.Filter{
			OrganizationID: q.OrganizationID,
			OwnerID:        q.OwnerID,
			Statuses:       q.Statuses,
			Categories:     q.Categories,
			RiskLevels:     q.RiskLevels,
			Tags:           q.Tags,
			RiskType:       q.RiskType,
			SearchText:     q.SearchText,
		},
		Sort: repository.Sort{Field: q.SortBy, Descending: q.SortDescending},
		Page: repository.Page{Number: q.Page, Limit: q.Limit},
	}
}

// SearchQuery matches free text against title and description.
type SearchQuery struct {
	Text           string `json:"text"`
	OrganizationID *int64 `json:"organization_id"`
}

func (q SearchQuery) Validate() error {
	if q.Text == "" {
		return domain.NewValidationError("invalid search query",
			domain.FieldError{Field: "text", Message: "is required"})
	}
	return nil
}

// StatisticsQuery aggregates the risk set, optionally scoped to one
// organization.
type StatisticsQuery struct {
	OrganizationID *int64 `json:"organization_id"`
}

func (q StatisticsQuery) Validate() error {
	if q.OrganizationID != nil && *q.OrganizationID <= 0 {
		return domain.NewValidationError("invalid statistics query",
			domain.FieldError{Field: "organization_id", Message: "must be a positive integer", Value: *q.OrganizationID})
	}
	return nil
}
