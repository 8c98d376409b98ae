// Package memory provides the in-memory RiskRepository used by tests and as
// the reference implementation of the list/statistics query engine.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/riskops/backend/domain"
	"github.com/riskops/backend/eventbus"
	"github.com/riskops/backend/repository"
)

type riskRepository struct {
	mu     sync.RWMutex
	rows   map[int64]domain.RiskState
	nextID int64
	bus    *eventbus.Bus
	logger *zap.Logger
}

// NewRiskRepository creates an empty in-memory RiskRepository publishing
// drained aggregate events on the provided bus.
func NewRiskRepository(bus *eventbus.Bus, logger *zap.Logger) repository.RiskRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &riskRepository{
		rows:   make(map[int64]domain.RiskState),
		nextID: 1,
		bus:    bus,
		logger: logger,
	}
}

func (r *riskRepository) Save(ctx context.Context, risk *domain.Risk) error {
	if risk == nil {
		return domain.NewValidationError("risk is required")
	}

	r.mu.Lock()
	if !risk.IsPersisted() {
		risk.SetID(r.nextID)
		r.nextID++
	}
	state := risk.State()
	r.rows[state.ID] = state
	r.mu.Unlock()

	r.publish(ctx, risk)
	return nil
}

// SaveMany persists each risk independently; a failure leaves earlier items
// committed.
func (r *riskRepository) SaveMany(ctx context.Context, risks []*domain.Risk) error {
	for _, risk := range risks {
		if err := r.Save(ctx, risk); err != nil {
			return err
		}
	}
	return nil
}

func (r *riskRepository) FindByID(ctx context.Context, id int64) (*domain.Risk, error) {
	r.mu.RLock()
	state, ok := r.rows[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.NewNotFoundError("risk", strconv.FormatInt(id, 10))
	}
	return domain.ReconstituteRisk(state), nil
}

func (r *riskRepository) FindByRiskID(ctx context.Context, riskID string) (*domain.Risk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, state := range r.rows {
		if state.RiskID == riskID {
			return domain.ReconstituteRisk(state), nil
		}
	}
	return nil, domain.NewNotFoundError("risk", riskID)
}

func (r *riskRepository) FindByIDs(ctx context.Context, ids []int64) ([]*domain.Risk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Risk
	for _, id := range ids {
		if state, ok := r.rows[id]; ok {
			out = append(out, domain.ReconstituteRisk(state))
		}
	}
	return out, nil
}

func (r *riskRepository) FindAll(ctx context.Context) ([]*domain.Risk, error) {
	return r.collect(func(state domain.RiskState) bool { return true }), nil
}

func (r *riskRepository) FindByOwner(ctx context.Context, ownerID int64) ([]*domain.Risk, error) {
	return r.collect(func(state domain.RiskState) bool { return state.OwnerID == ownerID }), nil
}

func (r *riskRepository) FindByOrganization(ctx context.Context, organizationID int64) ([]*domain.Risk, error) {
	return r.collect(func(state domain.RiskState) bool { return state.OrganizationID == organizationID }), nil
}

func (r *riskRepository) FindByStatus(ctx context.Context, status string) ([]*domain.Risk, error) {
	return r.collect(func(state domain.RiskState) bool { return state.Status == status }), nil
}

func (r *riskRepository) FindByCategory(ctx context.Context, category string) ([]*domain.Risk, error) {
	return r.collect(func(state domain.RiskState) bool { return state.Category == category }), nil
}

func (r *riskRepository) FindCriticalRisks(ctx context.Context) ([]*domain.Risk, error) {
	return r.collect(func(state domain.RiskState) bool {
		return state.Probability*state.Impact >= 20
	}), nil
}

func (r *riskRepository) FindNeedingAttention(ctx context.Context) ([]*domain.Risk, error) {
	return r.collect(func(state domain.RiskState) bool {
		return state.Probability*state.Impact >= 15 && state.Status == domain.StatusActive
	}), nil
}

func (r *riskRepository) FindOverdueReviews(ctx context.Context) ([]*domain.Risk, error) {
	now := time.Now()
	return r.collect(func(state domain.RiskState) bool {
		return state.ReviewDate != nil && state.ReviewDate.Before(now)
	}), nil
}

func (r *riskRepository) List(ctx context.Context, query repository.ListQuery) (*repository.ListResult, error) {
	r.mu.RLock()
	var matched []domain.RiskState
	for _, state := range r.rows {
		if matchesFilter(state, query.Filter) {
			matched = append(matched, state)
		}
	}
	r.mu.RUnlock()

	sortStates(matched, query.Sort)

	total := len(matched)
	page := query.Page.Normalize()
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}

	items := make([]*domain.Risk, 0, end-start)
	for _, state := range matched[start:end] {
		items = append(items, domain.ReconstituteRisk(state))
	}
	return repository.NewListResult(items, total, page), nil
}

func (r *riskRepository) Search(ctx context.Context, text string, organizationID *int64) ([]*domain.Risk, error) {
	needle := strings.ToLower(strings.TrimSpace(text))
	return r.collect(func(state domain.RiskState) bool {
		if organizationID != nil && state.OrganizationID != *organizationID {
			return false
		}
		if needle == "" {
			return true
		}
		return strings.Contains(strings.ToLower(state.Title), needle) ||
			strings.Contains(strings.ToLower(state.Description), needle)
	}), nil
}

func (r *riskRepository) GetStatistics(ctx context.Context, organizationID *int64) (*repository.Statistics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &repository.Statistics{
		ByStatus:   make(map[string]int),
		ByCategory: make(map[string]int),
		ByLevel:    make(map[string]int),
	}
	now := time.Now()
	scoreSum := 0

	for _, state := range r.rows {
		if organizationID != nil && state.OrganizationID != *organizationID {
			continue
		}
		score := state.Probability * state.Impact
		stats.Total++
		scoreSum += score
		stats.ByStatus[state.Status]++
		stats.ByCategory[state.Category]++
		stats.ByLevel[string(domain.LevelForScore(score))]++
		if state.Status == domain.StatusActive {
			stats.Active++
		}
		if state.Status == domain.StatusClosed {
			stats.Closed++
		}
		if state.ReviewDate != nil && state.ReviewDate.Before(now) {
			stats.OverdueReviews++
		}
	}
	if stats.Total > 0 {
		stats.AverageScore = float64(scoreSum) / float64(stats.Total)
	}
	return stats, nil
}

func (r *riskRepository) Exists(ctx context.Context, riskID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, state := range r.rows {
		if state.RiskID == riskID {
			return true, nil
		}
	}
	return false, nil
}

// Delete removes the risk after the aggregate approved the precondition via
// PrepareForDeletion, then publishes the drained events.
func (r *riskRepository) Delete(ctx context.Context, risk *domain.Risk) error {
	if risk == nil {
		return domain.NewValidationError("risk is required")
	}
	r.mu.Lock()
	_, ok := r.rows[risk.ID]
	if ok {
		delete(r.rows, risk.ID)
	}
	r.mu.Unlock()
	if !ok {
		return domain.NewNotFoundError("risk", risk.RiskID())
	}
	r.publish(ctx, risk)
	return nil
}

func (r *riskRepository) DeleteMany(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		risk, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := risk.PrepareForDeletion(); err != nil {
			return err
		}
		if err := r.Delete(ctx, risk); err != nil {
			return err
		}
	}
	return nil
}

// UpdateStatusBulk applies the transition to each risk independently, with no
// cross-item atomicity.
func (r *riskRepository) UpdateStatusBulk(ctx context.Context, ids []int64, status, reason string) error {
	for _, id := range ids {
		risk, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := risk.ChangeStatus(status, reason); err != nil {
			return err
		}
		if err := r.Save(ctx, risk); err != nil {
			return err
		}
	}
	return nil
}

// NextRiskIDNumber scans business identifiers sharing the prefix and returns
// one past the highest suffix, starting at 1.
func (r *riskRepository) NextRiskIDNumber(ctx context.Context, prefix string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	highest := 0
	for _, state := range r.rows {
		n, ok := suffixNumber(state.RiskID, prefix)
		if ok && n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

func (r *riskRepository) collect(match func(domain.RiskState) bool) []*domain.Risk {
	r.mu.RLock()
	var matched []domain.RiskState
	for _, state := range r.rows {
		if match(state) {
			matched = append(matched, state)
		}
	}
	r.mu.RUnlock()

	sortStates(matched, repository.Sort{Field: repository.SortByCreatedAt, Descending: true})
	out := make([]*domain.Risk, 0, len(matched))
	for _, state := range matched {
		out = append(out, domain.ReconstituteRisk(state))
	}
	return out
}

func (r *riskRepository) publish(ctx context.Context, risk *domain.Risk) {
	if r.bus == nil {
		return
	}
	r.bus.PublishAll(ctx, risk.PullDomainEvents())
}

// matchesFilter combines filter fields with AND; the values inside a
// multi-valued field combine with OR. Risk levels are translated to score
// ranges rather than matched against stored values.
func matchesFilter(state domain.RiskState, filter repository.Filter) bool {
	if filter.OrganizationID != nil && state.OrganizationID != *filter.OrganizationID {
		return false
	}
	if filter.OwnerID != nil && state.OwnerID != *filter.OwnerID {
		return false
	}
	if filter.RiskType != "" && state.RiskType != filter.RiskType {
		return false
	}
	if len(filter.Statuses) > 0 && !containsString(filter.Statuses, state.Status) {
		return false
	}
	if len(filter.Categories) > 0 && !containsString(filter.Categories, state.Category) {
		return false
	}
	if len(filter.RiskLevels) > 0 {
		score := state.Probability * state.Impact
		matched := false
		for _, level := range filter.RiskLevels {
			min, max, ok := repository.LevelScoreRange(level)
			if ok && score >= min && score <= max {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if len(filter.Tags) > 0 {
		matched := false
		for _, tag := range filter.Tags {
			if containsString(state.Tags, strings.ToLower(strings.TrimSpace(tag))) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if needle := strings.ToLower(strings.TrimSpace(filter.SearchText)); needle != "" {
		if !strings.Contains(strings.ToLower(state.Title), needle) &&
			!strings.Contains(strings.ToLower(state.Description), needle) {
			return false
		}
	}
	return true
}

func sortStates(states []domain.RiskState, by repository.Sort) {
	field := repository.SortField(by.Field)
	sort.SliceStable(states, func(i, j int) bool {
		a, b := states[i], states[j]
		var less bool
		switch field {
		case repository.SortByScore:
			less = a.Probability*a.Impact < b.Probability*b.Impact
		case repository.SortByUpdatedAt:
			less = a.UpdatedAt.Before(b.UpdatedAt)
		case repository.SortByTitle:
			less = strings.ToLower(a.Title) < strings.ToLower(b.Title)
		case repository.SortByStatus:
			less = a.Status < b.Status
		default:
			less = a.CreatedAt.Before(b.CreatedAt)
		}
		if by.Descending {
			return !less && !statesEqual(a, b, field)
		}
		return less
	})
}

func statesEqual(a, b domain.RiskState, field string) bool {
	switch field {
	case repository.SortByScore:
		return a.Probability*a.Impact == b.Probability*b.Impact
	case repository.SortByUpdatedAt:
		return a.UpdatedAt.Equal(b.UpdatedAt)
	case repository.SortByTitle:
		return strings.EqualFold(a.Title, b.Title)
	case repository.SortByStatus:
		return a.Status == b.Status
	default:
		return a.CreatedAt.Equal(b.CreatedAt)
	}
}

func containsString(haystack []string, needle string) bool {
	for _, item := range haystack {
		if item == needle {
			return true
		}
	}
	return false
}

func suffixNumber(riskID, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(riskID, prefix+"-")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
