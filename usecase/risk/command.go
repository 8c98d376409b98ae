package risk

import (
	"regexp"
	"time"

	"github.com/riskops/backend/domain"
)

// DefaultRiskIDPrefix is used when a create command carries no business
// identifier and one must be generated.
const DefaultRiskIDPrefix = "RISK"

var riskIDPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*-[0-9]+$`)

// CreateCommand creates a new risk. RiskID may be left empty to have the
// handler generate the next identifier for DefaultRiskIDPrefix.
type CreateCommand struct {
	RiskID          string                 `json:"risk_id"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	Category        string                 `json:"category"`
	Probability     int                    `json:"probability"`
	Impact          int                    `json:"impact"`
	OrganizationID  int64                  `json:"organization_id"`
	OwnerID         int64                  `json:"owner_id"`
	CreatedBy       int64                  `json:"created_by"`
	RiskType        string                 `json:"risk_type"`
	MitigationPlan  string                 `json:"mitigation_plan"`
	ContingencyPlan string                 `json:"contingency_plan"`
	ReviewDate      *time.Time             `json:"review_date"`
	Tags            []string               `json:"tags"`
	Metadata        map[string]interface{} `json:"metadata"`
}

// Validate checks structural completeness independent of the aggregate's own
// invariants.
func (c CreateCommand) Validate() error {
	var fields []domain.FieldError
	if c.RiskID != "" && !riskIDPattern.MatchString(c.RiskID) {
		fields = append(fields, domain.FieldError{Field: "risk_id", Message: "must match PREFIX-NUMBER", Value: c.RiskID})
	}
	if c.Title == "" {
		fields = append(fields, domain.FieldError{Field: "title", Message: "is required"})
	}
	if c.Description == "" {
		fields = append(fields, domain.FieldError{Field: "description", Message: "is required"})
	}
	if c.Category == "" {
		fields = append(fields, domain.FieldError{Field: "category", Message: "is required"})
	}
	fields = append(fields, rangeErrors(c.Probability, c.Impact)...)
	for _, ref := range []struct {
		field string
		value int64
	}{
		{"organization_id", c.OrganizationID},
		{"owner_id", c.OwnerID},
		{"created_by", c.CreatedBy},
	} {
		if ref.value <= 0 {
			fields = append(fields, domain.FieldError{Field: ref.field, Message: "must be a positive integer", Value: ref.value})
		}
	}
	if len(fields) > 0 {
		return domain.NewValidationError("invalid create command", fields...)
	}
	return nil
}

// UpdateCommand updates an existing risk; nil pointers leave fields untouched.
type UpdateCommand struct {
	ID              int64                   `json:"id"`
	Title           *string                 `json:"title"`
	Description     *string                 `json:"description"`
	Category        *string                 `json:"category"`
	Probability     *int                    `json:"probability"`
	Impact          *int                    `json:"impact"`
	OwnerID         *int64                  `json:"owner_id"`
	MitigationPlan  *string                 `json:"mitigation_plan"`
	ContingencyPlan *string                 `json:"contingency_plan"`
	ReviewDate      *time.Time              `json:"review_date"`
	Tags            *[]string               `json:"tags"`
	Metadata        *map[string]interface{} `json:"metadata"`
}

func (c UpdateCommand) Validate() error {
	var fields []domain.FieldError
	if c.ID <= 0 {
		fields = append(fields, domain.FieldError{Field: "id", Message: "must be a positive integer", Value: c.ID})
	}
	if (c.Probability == nil) != (c.Impact == nil) {
		fields = append(fields, domain.FieldError{Field: "probability", Message: "probability and impact must be supplied together"})
	}
	if c.Probability != nil && c.Impact != nil {
		fields = append(fields, rangeErrors(*c.Probability, *c.Impact)...)
	}
	if c.OwnerID != nil && *c.OwnerID <= 0 {
		fields = append(fields, domain.FieldError{Field: "owner_id", Message: "must be a positive integer", Value: *c.OwnerID})
	}
	if len(fields) > 0 {
		return domain.NewValidationError("invalid update command", fields...)
	}
	return nil
}

// ChangeStatusCommand moves a risk through the lifecycle state machine.
type ChangeStatusCommand struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (c ChangeStatusCommand) Validate() error {
	var fields []domain.FieldError
	if c.ID <= 0 {
		fields = append(fields, domain.FieldError{Field: "id", Message: "must be a positive integer", Value: c.ID})
	}
	if c.Status == "" {
		fields = append(fields, domain.FieldError{Field: "status", Message: "is required"})
	}
	if len(fields) > 0 {
		return domain.NewValidationError("invalid change-status command", fields...)
	}
	return nil
}

// DeleteCommand removes a risk, subject to the aggregate's deletion rules.
type DeleteCommand struct {
	ID int64 `json:"id"`
}

func (c DeleteCommand) Validate() error {
	if c.ID <= 0 {
		return domain.NewValidationError("invalid delete command",
			domain.FieldError{Field: "id", Message: "must be a positive integer", Value: c.ID})
	}
	return nil
}

// BulkStatusCommand applies one status transition to many risks. Items are
// processed independently; the result reports per-item failures.
type BulkStatusCommand struct {
	IDs    []int64 `json:"ids"`
	Status string  `json:"status"`
	Reason string  `json:"reason"`
}

func (c BulkStatusCommand) Validate() error {
	var fields []domain.FieldError
	if len(c.IDs) == 0 {
		fields = append(fields, domain.FieldError{Field: "ids", Message: "at least one id is required"})
	}
	if c.Status == "" {
		fields = append(fields, domain.FieldError{Field: "status", Message: "is required"})
	}
	if len(fields) > 0 {
		return domain.NewValidationError("invalid bulk status command", fields...)
	}
	return nil
}

func rangeErrors(probability, impact int) []domain.FieldError {
	var fields []domain.FieldError
	if probability < 1 || probability > 5 {
		fields = append(fields, domain.FieldError{Field: "probability", Message: "must be between 1 and 5", Value: probability})
	}
	if impact < 1 || impact > 5 {
		fields = append(fields, domain.FieldError{Field: "impact", Message: "must be between 1 and 5", Value: impact})
	}
	return fields
}
