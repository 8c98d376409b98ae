package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Field length limits enforced on creation and update.
const (
	titleMaxLen       = 200
	descriptionMaxLen = 2000
	planMaxLen        = 5000
)

// DefaultRiskType classifies risks that carry no explicit type.
const DefaultRiskType = "business"

// riskIDPattern matches the human-facing business identifier, e.g. RISK-001.
var riskIDPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*-[0-9]+$`)

// Risk is the aggregate root of the risk register. All mutations go through
// its methods; each mutating method bumps UpdatedAt and may buffer a domain
// event for the repository to publish after a successful save.
type Risk struct {
	Entity
	recorder

	riskID          string
	title           string
	description     string
	category        Category
	score           Score
	status          Status
	organizationID  int64
	ownerID         int64
	createdBy       int64
	riskType        string
	mitigationPlan  string
	contingencyPlan string
	reviewDate      *time.Time
	lastReviewDate  *time.Time
	tags            []string
	metadata        map[string]interface{}
}

// NewRiskInput carries the fields required to create a risk.
type NewRiskInput struct {
	RiskID          string
	Title           string
	Description     string
	Category        string
	Probability     int
	Impact          int
	OrganizationID  int64
	OwnerID         int64
	CreatedBy       int64
	RiskType        string
	MitigationPlan  string
	ContingencyPlan string
	ReviewDate      *time.Time
	Tags            []string
	Metadata        map[string]interface{}
}

// NewRisk validates the input and creates a risk in status "active",
// buffering a risk.created event.
func NewRisk(input NewRiskInput) (*Risk, error) {
	var fields []FieldError

	riskID := strings.TrimSpace(input.RiskID)
	if !riskIDPattern.MatchString(riskID) {
		fields = append(fields, FieldError{Field: "risk_id", Message: "must match PREFIX-NUMBER, e.g. RISK-001", Value: input.RiskID})
	}
	title := strings.TrimSpace(input.Title)
	if err := validateLength("title", title, 1, titleMaxLen); err != nil {
		fields = append(fields, *err)
	}
	description := strings.TrimSpace(input.Description)
	if err := validateLength("description", description, 1, descriptionMaxLen); err != nil {
		fields = append(fields, *err)
	}
	mitigation := strings.TrimSpace(input.MitigationPlan)
	if err := validateLength("mitigation_plan", mitigation, 0, planMaxLen); err != nil {
		fields = append(fields, *err)
	}
	contingency := strings.TrimSpace(input.ContingencyPlan)
	if err := validateLength("contingency_plan", contingency, 0, planMaxLen); err != nil {
		fields = append(fields, *err)
	}
	for _, ref := range []struct {
		field string
		value int64
	}{
		{"organization_id", input.OrganizationID},
		{"owner_id", input.OwnerID},
		{"created_by", input.CreatedBy},
	} {
		if ref.value <= 0 {
			fields = append(fields, FieldError{Field: ref.field, Message: "must be a positive integer", Value: ref.value})
		}
	}

	category, err := NewCategory(input.Category)
	if err != nil {
		fields = append(fields, err.(*ValidationError).Fields...)
	}
	score, err := NewScore(input.Probability, input.Impact)
	if err != nil {
		fields = append(fields, err.(*ValidationError).Fields...)
	}
	metadata, err := normalizeMetadata(input.Metadata)
	if err != nil {
		fields = append(fields, err.(*ValidationError).Fields...)
	}

	if len(fields) > 0 {
		return nil, NewValidationError("invalid risk", fields...)
	}

	riskType := strings.TrimSpace(input.RiskType)
	if riskType == "" {
		riskType = DefaultRiskType
	}

	r := &Risk{
		riskID:          riskID,
		title:           title,
		description:     description,
		category:        category,
		score:           score,
		status:          Status{value: StatusActive},
		organizationID:  input.OrganizationID,
		ownerID:         input.OwnerID,
		createdBy:       input.CreatedBy,
		riskType:        riskType,
		mitigationPlan:  mitigation,
		contingencyPlan: contingency,
		reviewDate:      copyTime(input.ReviewDate),
		tags:            normalizeTags(input.Tags),
		metadata:        metadata,
	}
	r.Touch()

	r.record(NewEvent(EventRiskCreated, r.riskID, RiskCreatedPayload{
		RiskID:         r.riskID,
		Title:          r.title,
		Category:       r.category.String(),
		Score:          r.score.Value(),
		Level:          string(r.score.Level()),
		Status:         r.status.String(),
		OrganizationID: r.organizationID,
		OwnerID:        r.ownerID,
		CreatedBy:      r.createdBy,
	}))
	return r, nil
}

// RiskState is the raw field set used to move a risk across the persistence
// boundary in both directions.
type RiskState struct {
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
	Tags            []string
	Metadata        map[string]interface{}
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ReconstituteRisk rebuilds an aggregate from stored state. The store is a
// trusted source: no validation runs and the original timestamps are kept.
func ReconstituteRisk(state RiskState) *Risk {
	r := &Risk{
		Entity:          Entity{ID: state.ID, CreatedAt: state.CreatedAt, UpdatedAt: state.UpdatedAt},
		riskID:          state.RiskID,
		title:           state.Title,
		description:     state.Description,
		category:        Category{value: state.Category},
		score:           Score{probability: state.Probability, impact: state.Impact},
		status:          Status{value: state.Status},
		organizationID:  state.OrganizationID,
		ownerID:         state.OwnerID,
		createdBy:       state.CreatedBy,
		riskType:        state.RiskType,
		mitigationPlan:  state.MitigationPlan,
		contingencyPlan: state.ContingencyPlan,
		reviewDate:      copyTime(state.ReviewDate),
		lastReviewDate:  copyTime(state.LastReviewDate),
		tags:            append([]string(nil), state.Tags...),
	}
	if state.RiskType == "" {
		r.riskType = DefaultRiskType
	}
	if len(state.Metadata) > 0 {
		r.metadata, _ = normalizeMetadata(state.Metadata)
	}
	return r
}

// State snapshots the aggregate for persistence mapping.
func (r *Risk) State() RiskState {
	return RiskState{
		ID:              r.ID,
		RiskID:          r.riskID,
		Title:           r.title,
		Description:     r.description,
		Category:        r.category.String(),
		Probability:     r.score.Probability(),
		Impact:          r.score.Impact(),
		Status:          r.status.String(),
		OrganizationID:  r.organizationID,
		OwnerID:         r.ownerID,
		CreatedBy:       r.createdBy,
		RiskType:        r.riskType,
		MitigationPlan:  r.mitigationPlan,
		ContingencyPlan: r.contingencyPlan,
		ReviewDate:      copyTime(r.reviewDate),
		LastReviewDate:  copyTime(r.lastReviewDate),
		Tags:            append([]string(nil), r.tags...),
		Metadata:        r.metadata,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (r *Risk) RiskID() string                   { return r.riskID }
func (r *Risk) Title() string                    { return r.title }
func (r *Risk) Description() string              { return r.description }
func (r *Risk) Category() Category               { return r.category }
func (r *Risk) Score() Score                     { return r.score }
func (r *Risk) Status() Status                   { return r.status }
func (r *Risk) OrganizationID() int64            { return r.organizationID }
func (r *Risk) OwnerID() int64                   { return r.ownerID }
func (r *Risk) CreatedBy() int64                 { return r.createdBy }
func (r *Risk) RiskType() string                 { return r.riskType }
func (r *Risk) MitigationPlan() string           { return r.mitigationPlan }
func (r *Risk) ContingencyPlan() string          { return r.contingencyPlan }
func (r *Risk) ReviewDate() *time.Time           { return copyTime(r.reviewDate) }
func (r *Risk) LastReviewDate() *time.Time       { return copyTime(r.lastReviewDate) }
func (r *Risk) Tags() []string                   { return append([]string(nil), r.tags...) }
func (r *Risk) Metadata() map[string]interface{} { return r.metadata }

// SetID assigns the storage surrogate id after the first insert.
func (r *Risk) SetID(id int64) { r.ID = id }

// UpdateDetailsInput carries the optional fields of an update; nil pointers
// leave the current value untouched.
type UpdateDetailsInput struct {
	Title           *string
	Description     *string
	Category        *string
	MitigationPlan  *string
	ContingencyPlan *string
	Tags            *[]string
	Metadata        *map[string]interface{}
}

// UpdateDetails validates any supplied fields against the creation rules and
// replaces them, buffering a risk.updated event naming the changed fields.
func (r *Risk) UpdateDetails(input UpdateDetailsInput) error {
	var fields []FieldError
	var changed []string

	var title, description, mitigation, contingency string
	var category Category
	var metadata map[string]interface{}

	if input.Title != nil {
		title = strings.TrimSpace(*input.Title)
		if err := validateLength("title", title, 1, titleMaxLen); err != nil {
			fields = append(fields, *err)
		}
	}
	if input.Description != nil {
		description = strings.TrimSpace(*input.Description)
		if err := validateLength("description", description, 1, descriptionMaxLen); err != nil {
			fields = append(fields, *err)
		}
	}
	if input.Category != nil {
		var err error
		category, err = NewCategory(*input.Category)
		if err != nil {
			fields = append(fields, err.(*ValidationError).Fields...)
		}
	}
	if input.MitigationPlan != nil {
		mitigation = strings.TrimSpace(*input.MitigationPlan)
		if err := validateLength("mitigation_plan", mitigation, 0, planMaxLen); err != nil {
			fields = append(fields, *err)
		}
	}
	if input.ContingencyPlan != nil {
		contingency = strings.TrimSpace(*input.ContingencyPlan)
		if err := validateLength("contingency_plan", contingency, 0, planMaxLen); err != nil {
			fields = append(fields, *err)
		}
	}
	if input.Metadata != nil {
		var err error
		metadata, err = normalizeMetadata(*input.Metadata)
		if err != nil {
			fields = append(fields, err.(*ValidationError).Fields...)
		}
	}

	if len(fields) > 0 {
		return NewValidationError("invalid risk update", fields...)
	}

	if input.Title != nil && title != r.title {
		r.title = title
		changed = append(changed, "title")
	}
	if input.Description != nil && description != r.description {
		r.description = description
		changed = append(changed, "description")
	}
	if input.Category != nil && !category.Equal(r.category) {
		r.category = category
		changed = append(changed, "category")
	}
	if input.MitigationPlan != nil && mitigation != r.mitigationPlan {
		r.mitigationPlan = mitigation
		changed = append(changed, "mitigation_plan")
	}
	if input.ContingencyPlan != nil && contingency != r.contingencyPlan {
		r.contingencyPlan = contingency
		changed = append(changed, "contingency_plan")
	}
	if input.Tags != nil {
		r.tags = normalizeTags(*input.Tags)
		changed = append(changed, "tags")
	}
	if input.Metadata != nil {
		r.metadata = metadata
		changed = append(changed, "metadata")
	}

	if len(changed) == 0 {
		return nil
	}

	r.Touch()
	r.record(NewEvent(EventRiskUpdated, r.riskID, RiskUpdatedPayload{
		RiskID:        r.riskID,
		ChangedFields: changed,
	}))
	return nil
}

// UpdateScore recomputes the score value object, re-validating the ranges,
// and buffers a risk.updated event carrying the old and new values.
func (r *Risk) UpdateScore(probability, impact int) error {
	updated, err := r.score.Update(probability, impact)
	if err != nil {
		return err
	}
	if updated.Equal(r.score) {
		return nil
	}

	old := r.score
	r.score = updated
	r.Touch()
	r.record(NewEvent(EventRiskUpdated, r.riskID, RiskUpdatedPayload{
		RiskID:         r.riskID,
		ChangedFields:  []string{"score"},
		OldProbability: old.Probability(),
		NewProbability: updated.Probability(),
		OldImpact:      old.Impact(),
		NewImpact:      updated.Impact(),
		OldScore:       old.Value(),
		NewScore:       updated.Value(),
	}))
	return nil
}

// ChangeStatus moves the risk through the lifecycle state machine. A move the
// transition table disallows fails; closing a critical risk without a
// mitigation plan fails with a separate rule.
func (r *Risk) ChangeStatus(newStatus, reason string) error {
	target, err := NewStatus(newStatus)
	if err != nil {
		return err
	}
	if !r.status.CanTransitionTo(target) {
		return NewDomainError(RuleInvalidStatusTransition,
			fmt.Sprintf("invalid status transition from %q to %q", r.status, target))
	}
	if target.IsClosed() && r.score.IsCritical() && r.mitigationPlan == "" {
		return NewDomainError(RuleMitigationPlanRequired,
			"mitigation plan required before closing a critical risk")
	}

	old := r.status
	r.status = target
	r.Touch()
	r.record(NewEvent(EventRiskStatusChanged, r.riskID, RiskStatusChangedPayload{
		RiskID:     r.riskID,
		FromStatus: old.String(),
		ToStatus:   target.String(),
		Reason:     strings.TrimSpace(reason),
		Score:      r.score.Value(),
		Critical:   r.score.IsCritical(),
	}))
	return nil
}

// AssignTo reassigns the owner. Assigning the current owner is a no-op.
func (r *Risk) AssignTo(newOwnerID int64) error {
	if newOwnerID <= 0 {
		return NewValidationError("invalid owner",
			FieldError{Field: "owner_id", Message: "must be a positive integer", Value: newOwnerID})
	}
	if newOwnerID == r.ownerID {
		return nil
	}
	r.ownerID = newOwnerID
	r.Touch()
	return nil
}

// ScheduleReview sets the next review date, which must be strictly in the future.
func (r *Risk) ScheduleReview(date time.Time) error {
	if !date.After(time.Now()) {
		return NewValidationError("invalid review date",
			FieldError{Field: "review_date", Message: "must be in the future", Value: date})
	}
	d := date.UTC()
	r.reviewDate = &d
	r.Touch()
	return nil
}

// MarkAsReviewed stamps the last review and auto-schedules the next one
// 30/60/90 days out depending on criticality.
func (r *Risk) MarkAsReviewed() {
	now := time.Now().UTC()
	r.lastReviewDate = &now

	days := 90
	switch {
	case r.score.IsCritical():
		days = 30
	case r.score.IsHighOrCritical():
		days = 60
	}
	next := now.AddDate(0, 0, days)
	r.reviewDate = &next
	r.Touch()
}

// AddTag normalizes and adds a tag; adding an existing tag is a no-op.
func (r *Risk) AddTag(tag string) {
	normalized := strings.ToLower(strings.TrimSpace(tag))
	if normalized == "" {
		return
	}
	for _, existing := range r.tags {
		if existing == normalized {
			return
		}
	}
	r.tags = append(r.tags, normalized)
	r.Touch()
}

// RemoveTag drops a tag; removing an absent tag is a no-op.
func (r *Risk) RemoveTag(tag string) {
	normalized := strings.ToLower(strings.TrimSpace(tag))
	for i, existing := range r.tags {
		if existing == normalized {
			r.tags = append(r.tags[:i], r.tags[i+1:]...)
			r.Touch()
			return
		}
	}
}

// CanBeDeleted reports whether the deletion precondition holds: a critical
// risk that is still active cannot be deleted.
func (r *Risk) CanBeDeleted() bool {
	if r.status.IsClosed() || r.status.IsResolved() {
		return true
	}
	if r.score.IsCritical() && r.status.IsActive() {
		return false
	}
	return true
}

// PrepareForDeletion checks the deletion precondition and buffers a
// risk.deleted event with a snapshot of the key fields.
func (r *Risk) PrepareForDeletion() error {
	if !r.CanBeDeleted() {
		return NewDomainError(RuleRiskNotDeletable,
			"critical active risks cannot be deleted")
	}
	r.record(NewEvent(EventRiskDeleted, r.riskID, RiskDeletedPayload{
		RiskID:         r.riskID,
		Title:          r.title,
		Category:       r.category.String(),
		Status:         r.status.String(),
		Score:          r.score.Value(),
		Level:          string(r.score.Level()),
		OrganizationID: r.organizationID,
	}))
	return nil
}

// PullDomainEvents returns the buffered events and atomically clears the
// buffer. Each event reaches the bus exactly once per persistence cycle.
func (r *Risk) PullDomainEvents() []Event {
	return r.drain()
}

func validateLength(field, value string, min, max int) *FieldError {
	if len(value) < min {
		return &FieldError{Field: field, Message: "is required", Value: value}
	}
	if len(value) > max {
		return &FieldError{Field: field, Message: fmt.Sprintf("must be at most %d characters", max)}
	}
	return nil
}

func normalizeTags(tags []string) []string {
	var out []string
	for _, tag := range tags {
		normalized := strings.ToLower(strings.TrimSpace(tag))
		if normalized == "" {
			continue
		}
		seen := false
		for _, existing := range out {
			if existing == normalized {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, normalized)
		}
	}
	return out
}

// normalizeMetadata deep-copies the map, restricting values to JSON-safe
// scalars, arrays, and nested objects so persistence round-trips stay
// deterministic.
func normalizeMetadata(metadata map[string]interface{}) (map[string]interface{}, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	out := make(map[string]interface{}, len(metadata))
	for key, value := range metadata {
		normalized, ok := normalizeMetadataValue(value)
		if !ok {
			return nil, NewValidationError("invalid metadata",
				FieldError{Field: "metadata." + key, Message: "unsupported value type"})
		}
		out[key] = normalized
	}
	return out, nil
}

func normalizeMetadataValue(value interface{}) (interface{}, bool) {
	switch v := value.(type) {
	case nil, string, bool, float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case []interface{}:
		out := make([]interface{}, 0, len(v))
		for _, item := range v {
			normalized, ok := normalizeMetadataValue(item)
			if !ok {
				return nil, false
			}
			out = append(out, normalized)
		}
		return out, true
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			normalized, ok := normalizeMetadataValue(item)
			if !ok {
				return nil, false
			}
			out[key] = normalized
		}
		return out, true
	default:
		return nil, false
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}
