package repository

import (
	"context"
	"math"

	"github.com/riskops/backend/domain"
)

// Pagination defaults and cap shared by every implementation.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Sortable fields. Unrecognized fields fall back to SortByCreatedAt.
const (
	SortByScore     = "score"
	SortByCreatedAt = "createdAt"
	SortByUpdatedAt = "updatedAt"
	SortByTitle     = "title"
	SortByStatus    = "status"
)

// Filter narrows a list query. Fields combine with logical AND; the values
// inside a multi-valued field combine with logical OR.
type Filter struct {
	OrganizationID *int64
	OwnerID        *int64
	Statuses       []string
	Categories     []string
	RiskLevels     []string
	Tags           []string
	RiskType       string
	SearchText     string
}

// Sort orders a list query by one allow-listed field.
type Sort struct {
	Field      string
	Descending bool
}

// Page selects one page of results.
type Page struct {
	Number int
	Limit  int
}

// Normalize applies the page/limit defaults and the limit cap.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = DefaultPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// ListQuery bundles filter, sort, and pagination for List.
type ListQuery struct {
	Filter Filter
	Sort   Sort
	Page   Page
}

// ListResult is one page of risks plus the paging envelope computed from the
// total count before paging.
type ListResult struct {
	Items       []*domain.Risk
	Total       int
	Page        int
	Limit       int
	TotalPages  int
	HasNext     bool
	HasPrevious bool
}

// NewListResult fills in the paging envelope for a page of items.
func NewListResult(items []*domain.Risk, total int, page Page) *ListResult {
	page = page.Normalize()
	totalPages := int(math.Ceil(float64(total) / float64(page.Limit)))
	return &ListResult{
		Items:       items,
		Total:       total,
		Page:        page.Number,
		Limit:       page.Limit,
		TotalPages:  totalPages,
		HasNext:     page.Number < totalPages,
		HasPrevious: page.Number > 1,
	}
}

// Statistics aggregates the matched risk set in a single pass.
type Statistics struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"by_status"`
	ByCategory     map[string]int `json:"by_category"`
	ByLevel        map[string]int `json:"by_level"`
	Active         int            `json:"active"`
	Closed         int            `json:"closed"`
	OverdueReviews int            `json:"overdue_reviews"`
	AverageScore   float64        `json:"average_score"`
}

// LevelScoreRange translates a risk level to its inclusive score bounds.
// Levels are never stored; queries filter on the derived score instead.
func LevelScoreRange(level string) (min, max int, ok bool) {
	switch domain.RiskLevel(level) {
	case domain.LevelCritical:
		return 20, 25, true
	case domain.LevelHigh:
		return 12, 19, true
	case domain.LevelMedium:
		return 6, 11, true
	case domain.LevelLow:
		return 1, 5, true
	default:
		return 0, 0, false
	}
}

// SortField maps a requested sort field to the allow-list, falling back to
// creation time for unrecognized fields.
func SortField(field string) string {
	switch field {
	case SortByScore, SortByCreatedAt, SortByUpdatedAt, SortByTitle, SortByStatus:
		return field
	default:
		return SortByCreatedAt
	}
}

// RiskRepository is the persistence contract beneath the risk handlers. Save
// inserts when the aggregate has no id yet and updates otherwise, then drains
// and publishes the aggregate's buffered events.
type RiskRepository interface {
	Save(ctx context.Context, risk *domain.Risk) error
	SaveMany(ctx context.Context, risks []*domain.Risk) error

	FindByID(ctx context.Context, id int64) (*domain.Risk, error)
	FindByRiskID(ctx context.Context, riskID string) (*domain.Risk, error)
	FindByIDs(ctx context.Context, ids []int64) ([]*domain.Risk, error)
	FindAll(ctx context.Context) ([]*domain.Risk, error)
	FindByOwner(ctx context.Context, ownerID int64) ([]*domain.Risk, error)
	FindByOrganization(ctx context.Context, organizationID int64) ([]*domain.Risk, error)
	FindByStatus(ctx context.Context, status string) ([]*domain.Risk, error)
	FindByCategory(ctx context.Context, category string) ([]*domain.Risk, error)
	FindCriticalRisks(ctx context.Context) ([]*domain.Risk, error)
	FindNeedingAttention(ctx context.Context) ([]*domain.Risk, error)
	FindOverdueReviews(ctx context.Context) ([]*domain.Risk, error)

	List(ctx context.Context, query ListQuery) (*ListResult, error)
	Search(ctx context.Context, text string, organizationID *int64) ([]*domain.Risk, error)
	GetStatistics(ctx context.Context, organizationID *int64) (*Statistics, error)

	Exists(ctx context.Context, riskID string) (bool, error)
	Delete(ctx context.Context, risk *domain.Risk) error
	DeleteMany(ctx context.Context, ids []int64) error
	UpdateStatusBulk(ctx context.Context, ids []int64, status, reason string) error

	NextRiskIDNumber(ctx context.Context, prefix string) (int, error)
}
