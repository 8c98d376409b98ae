package risk

import (
	"time"

	"github.com/riskops/backend/domain"
	"github.com/riskops/backend/repository"
)

// Response is the full risk snapshot handed to the presentation layer,
// including derived display strings and flags.
type Response struct {
	ID                      int64                  `json:"id"`
	RiskID                  string                 `json:"risk_id"`
	Title                   string                 `json:"title"`
	Description             string                 `json:"description"`
	Category                string                 `json:"category"`
	CategoryLabel           string                 `json:"category_label"`
	CategoryIcon            string                 `json:"category_icon"`
	Probability             int                    `json:"probability"`
	Impact                  int                    `json:"impact"`
	Score                   int                    `json:"score"`
	Level                   string                 `json:"level"`
	Status                  string                 `json:"status"`
	OrganizationID          int64                  `json:"organization_id"`
	OwnerID                 int64                  `json:"owner_id"`
	CreatedBy               int64                  `json:"created_by"`
	RiskType                string                 `json:"risk_type"`
	MitigationPlan          string                 `json:"mitigation_plan,omitempty"`
	ContingencyPlan         string                 `json:"contingency_plan,omitempty"`
	ReviewDate              *time.Time             `json:"review_date,omitempty"`
	LastReviewDate          *time.Time             `json:"last_review_date,omitempty"`
	Tags                    []string               `json:"tags,omitempty"`
	Metadata                map[string]interface{} `json:"metadata,omitempty"`
	IsCritical              bool                   `json:"is_critical"`
	NeedsImmediateAttention bool                   `json:"needs_immediate_attention"`
	CanBeDeleted            bool                   `json:"can_be_deleted"`
	CreatedAt               time.Time              `json:"created_at"`
	UpdatedAt               time.Time              `json:"updated_at"`
}

// NewResponse maps an aggregate to its transport-facing snapshot.
func NewResponse(r *domain.Risk) *Response {
	score := r.Score()
	category := r.Category()
	return &Response{
		ID:                      r.ID,
		RiskID:                  r.RiskID(),
		Title:                   r.Title(),
		Description:             r.Description(),
		Category:                category.String(),
		CategoryLabel:           category.Label(),
		CategoryIcon:            category.Icon(),
		Probability:             score.Probability(),
		Impact:                  score.Impact(),
		Score:                   score.Value(),
		Level:                   string(score.Level()),
		Status:                  r.Status().String(),
		OrganizationID:          r.OrganizationID(),
		OwnerID:                 r.OwnerID(),
		CreatedBy:               r.CreatedBy(),
		RiskType:                r.RiskType(),
		MitigationPlan:          r.MitigationPlan(),
		ContingencyPlan:         r.ContingencyPlan(),
		ReviewDate:              r.ReviewDate(),
		LastReviewDate:          r.LastReviewDate(),
		Tags:                    r.Tags(),
		Metadata:                r.Metadata(),
		IsCritical:              score.IsCritical(),
		NeedsImmediateAttention: score.NeedsImmediateAttention(),
		CanBeDeleted:            r.CanBeDeleted(),
		CreatedAt:               r.CreatedAt,
		UpdatedAt:               r.UpdatedAt,
	}
}

// ListItem is the minimal shape used in list pages.
type ListItem struct {
	ID        int64     `json:"id"`
	RiskID    string    `json:"risk_id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Score     int       `json:"score"`
	Level     string    `json:"level"`
	Status    string    `json:"status"`
	OwnerID   int64     `json:"owner_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListResponse is one page of list items plus the paging envelope.
type ListResponse struct {
	Items       []ListItem `json:"items"`
	Total       int        `json:"total"`
	Page        int        `json:"page"`
	Limit       int        `json:"limit"`
	TotalPages  int        `json:"total_pages"`
	HasNext     bool       `json:"has_next"`
	HasPrevious bool       `json:"has_previous"`
}

// NewListResponse maps a repository page to the transport shape.
func NewListResponse(result *repository.ListResult) *ListResponse {
	items := make([]ListItem, 0, len(result.Items))
	for _, r := range result.Items {
		score := r.Score()
		items = append(items, ListItem{
			ID:        r.ID,
			RiskID:    r.RiskID(),
			Title:     r.Title(),
			Category:  r.Category().String(),
			Score:     score.Value(),
			Level:     string(score.Level()),
			Status:    r.Status().String(),
			OwnerID:   r.OwnerID(),
			UpdatedAt: r.UpdatedAt,
		})
	}
	return &ListResponse{
		Items:       items,
		Total:       result.Total,
		Page:        result.Page,
		Limit:       result.Limit,
		TotalPages:  result.TotalPages,
		HasNext:     result.HasNext,
		HasPrevious: result.HasPrevious,
	}
}

// StatisticsResponse mirrors the repository aggregation for transport.
type StatisticsResponse struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"by_status"`
	ByCategory     map[string]int `json:"by_category"`
	ByLevel        map[string]int `json:"by_level"`
	Active         int            `json:"active"`
	Closed         int            `json:"closed"`
	OverdueReviews int            `json:"overdue_reviews"`
	AverageScore   float64        `json:"average_score"`
}

// NewStatisticsResponse maps repository statistics to the transport shape.
func NewStatisticsResponse(stats *repository.Statistics) *StatisticsResponse {
	return &StatisticsResponse{
		Total:          stats.Total,
		ByStatus:       stats.ByStatus,
		ByCategory:     stats.ByCategory,
		ByLevel:        stats.ByLevel,
		Active:         stats.Active,
		Closed:         stats.Closed,
		OverdueReviews: stats.OverdueReviews,
		AverageScore:   stats.AverageScore,
	}
}

// DeletionResponse confirms a completed deletion.
type DeletionResponse struct {
	RiskID    string    `json:"risk_id"`
	Deleted   bool      `json:"deleted"`
	DeletedAt time.Time `json:"deleted_at"`
}

// BulkItemError reports one failed item of a bulk operation.
type BulkItemError struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// BulkResponse reports the outcome of a best-effort bulk operation.
type BulkResponse struct {
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Errors    []BulkItemError `json:"errors,omitempty"`
}
