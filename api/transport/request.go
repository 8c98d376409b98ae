package transport

import (
	"time"

	usecase "github.com/riskops/backend/usecase/risk"
)

// RiskCreateRequest is the JSON body for creating a risk.
type RiskCreateRequest struct {
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

// ToCommand maps the request body to the create command.
func (r RiskCreateRequest) ToCommand() usecase.CreateCommand {
	return usecase.CreateCommand{
		RiskID:          r.RiskID,
		Title:           r.Title,
		Description:     r.Description,
		Category:        r.Category,
		Probability:     r.Probability,
		Impact:          r.Impact,
		OrganizationID:  r.OrganizationID,
		OwnerID:         r.OwnerID,
		CreatedBy:       r.CreatedBy,
		RiskType:        r.RiskType,
		MitigationPlan:  r.MitigationPlan,
		ContingencyPlan: r.ContingencyPlan,
		ReviewDate:      r.ReviewDate,
		Tags:            r.Tags,
		Metadata:        r.Metadata,
	}
}

// RiskUpdateRequest is the JSON body for a partial risk update. Absent fields
// stay nil and leave the stored value untouched.
type RiskUpdateRequest struct {
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

// ToCommand maps the request body plus the path id to the update command.
func (r RiskUpdateRequest) ToCommand(id int64) usecase.UpdateCommand {
	return usecase.UpdateCommand{
		ID:              id,
		Title:           r.Title,
		Description:     r.Description,
		Category:        r.Category,
		Probability:     r.Probability,
		Impact:          r.Impact,
		OwnerID:         r.OwnerID,
		MitigationPlan:  r.MitigationPlan,
		ContingencyPlan: r.ContingencyPlan,
		ReviewDate:      r.ReviewDate,
		Tags:            r.Tags,
		Metadata:        r.Metadata,
	}
}

// StatusChangeRequest is the JSON body for a lifecycle transition.
type StatusChangeRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// ToCommand maps the request body plus the path id to the status command.
func (r StatusChangeRequest) ToCommand(id int64) usecase.ChangeStatusCommand {
	return usecase.ChangeStatusCommand{ID: id, Status: r.Status, Reason: r.Reason}
}

// BulkStatusRequest is the JSON body for a bulk lifecycle transition.
type BulkStatusRequest struct {
	IDs    []int64 `json:"ids"`
	Status string  `json:"status"`
	Reason string  `json:"reason"`
}

// ToCommand maps the request body to the bulk status command.
func (r BulkStatusRequest) ToCommand() usecase.BulkStatusCommand {
	return usecase.BulkStatusCommand{IDs: r.IDs, Status: r.Status, Reason: r.Reason}
}
