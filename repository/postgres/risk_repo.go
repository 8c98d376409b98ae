package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/riskops/backend/domain"
	"github.com/riskops/backend/eventbus"
	"github.com/riskops/backend/repository"
)

const risksTable = "risks"

type riskRepository struct {
	pool   *pgxpool.Pool
	bus    *eventbus.Bus
	logger *zap.Logger
}

// NewRiskRepository returns a Postgres-backed RiskRepository that publishes
// drained aggregate events on the provided bus after each successful write.
func NewRiskRepository(pool *pgxpool.Pool, bus *eventbus.Bus, logger *zap.Logger) repository.RiskRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &riskRepository{pool: pool, bus: bus, logger: logger}
}

func (r *riskRepository) Save(ctx context.Context, risk *domain.Risk) error {
	if risk == nil {
		return domain.NewValidationError("risk is required")
	}

	row, err := rowFromState(risk.State())
	if err != nil {
		return err
	}

	if risk.IsPersisted() {
		err = r.update(ctx, row)
	} else {
		err = r.insert(ctx, risk, row)
	}
	if err != nil {
		return err
	}

	r.publish(ctx, risk)
	return nil
}

func (r *riskRepository) insert(ctx context.Context, risk *domain.Risk, row riskRow) error {
	query, args, err := builder.Insert(risksTable).
		Columns(riskColumns[1:]...).
		Values(
			row.RiskID, row.Title, row.Description, row.Category,
			row.Probability, row.Impact, row.Status,
			row.OrganizationID, row.OwnerID, row.CreatedBy, row.RiskType,
			row.MitigationPlan, row.ContingencyPlan,
			row.ReviewDate, row.LastReviewDate,
			row.Tags, row.Metadata, row.CreatedAt, row.UpdatedAt,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return err
	}

	var id int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return err
	}
	risk.SetID(id)
	return nil
}

func (r *riskRepository) update(ctx context.Context, row riskRow) error {
	query, args, err := builder.Update(risksTable).
		Set("title", row.Title).
		Set("description", row.Description).
		Set("category", row.Category).
		Set("probability", row.Probability).
		Set("impact", row.Impact).
		Set("status", row.Status).
		Set("owner_id", row.OwnerID).
		Set("risk_type", row.RiskType).
		Set("mitigation_plan", row.MitigationPlan).
		Set("contingency_plan", row.ContingencyPlan).
		Set("review_date", row.ReviewDate).
		Set("last_review_date", row.LastReviewDate).
		Set("tags", row.Tags).
		Set("metadata", row.Metadata).
		Set("updated_at", row.UpdatedAt).
		Where(sq.Eq{"id": row.ID}).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("risk", row.RiskID)
	}
	return nil
}

// SaveMany persists each risk independently; a failure leaves earlier items
// committed and later items untouched.
func (r *riskRepository) SaveMany(ctx context.Context, risks []*domain.Risk) error {
	for _, risk := range risks {
		if err := r.Save(ctx, risk); err != nil {
			return err
		}
	}
	return nil
}

func (r *riskRepository) FindByID(ctx context.Context, id int64) (*domain.Risk, error) {
	return r.findOne(ctx, sq.Eq{"id": id}, strconv.FormatInt(id, 10))
}

func (r *riskRepository) FindByRiskID(ctx context.Context, riskID string) (*domain.Risk, error) {
	return r.findOne(ctx, sq.Eq{"risk_id": riskID}, riskID)
}

func (r *riskRepository) FindByIDs(ctx context.Context, ids []int64) ([]*domain.Risk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.selectRisks(ctx, sq.Eq{"id": ids}, defaultOrder())
}

func (r *riskRepository) FindAll(ctx context.Context) ([]*domain.Risk, error) {
	return r.selectRisks(ctx, nil, defaultOrder())
}

func (r *riskRepository) FindByOwner(ctx context.Context, ownerID int64) ([]*domain.Risk, error) {
	return r.selectRisks(ctx, sq.Eq{"owner_id": ownerID}, defaultOrder())
}

func (r *riskRepository) FindByOrganization(ctx context.Context, organizationID int64) ([]*domain.Risk, error) {
	return r.selectRisks(ctx, sq.Eq{"organization_id": organizationID}, defaultOrder())
}

func (r *riskRepository) FindByStatus(ctx context.Context, status string) ([]*domain.Risk, error) {
	return r.selectRisks(ctx, sq.Eq{"status": status}, defaultOrder())
}

func (r *riskRepository) FindByCategory(ctx context.Context, category string) ([]*domain.Risk, error) {
	return r.selectRisks(ctx, sq.Eq{"category": category}, defaultOrder())
}

func (r *riskRepository) FindCriticalRisks(ctx context.Context) ([]*domain.Risk, error) {
	return r.selectRisks(ctx, sq.GtOrEq{"probability * impact": 20}, defaultOrder())
}

func (r *riskRepository) FindNeedingAttention(ctx context.Context) ([]*domain.Risk, error) {
	return r.selectRisks(ctx, sq.And{
		sq.GtOrEq{"probability * impact": 15},
		sq.Eq{"status": domain.StatusActive},
	}, defaultOrder())
}

func (r *riskRepository) FindOverdueReviews(ctx context.Context) ([]*domain.Risk, error) {
	return r.selectRisks(ctx, sq.Lt{"review_date": time.Now()}, defaultOrder())
}

func (r *riskRepository) List(ctx context.Context, query repository.ListQuery) (*repository.ListResult, error) {
	where := filterConjunction(query.Filter)

	countBuilder := builder.Select("COUNT(*)").From(risksTable)
	if len(where) > 0 {
		countBuilder = countBuilder.Where(where)
	}
	countSQL, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, err
	}
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, err
	}

	page := query.Page.Normalize()
	var cond sq.Sqlizer
	if len(where) > 0 {
		cond = where
	}
	items, err := r.selectPage(ctx, cond, orderClause(query.Sort), uint64(page.Limit), uint64(page.Offset()))
	if err != nil {
		return nil, err
	}
	return repository.NewListResult(items, total, page), nil
}

func (r *riskRepository) Search(ctx context.Context, text string, organizationID *int64) ([]*domain.Risk, error) {
	filter := repository.Filter{SearchText: strings.TrimSpace(text), OrganizationID: organizationID}
	where := filterConjunction(filter)
	var cond sq.Sqlizer
	if len(where) > 0 {
		cond = where
	}
	return r.selectRisks(ctx, cond, defaultOrder())
}

// GetStatistics selects the four columns the aggregation needs and folds them
// in a single pass, mirroring the reference engine.
func (r *riskRepository) GetStatistics(ctx context.Context, organizationID *int64) (*repository.Statistics, error) {
	selectBuilder := builder.Select("status", "category", "probability * impact", "review_date").From(risksTable)
	if organizationID != nil {
		selectBuilder = selectBuilder.Where(sq.Eq{"organization_id": *organizationID})
	}
	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &repository.Statistics{
		ByStatus:   make(map[string]int),
		ByCategory: make(map[string]int),
		ByLevel:    make(map[string]int),
	}
	now := time.Now()
	scoreSum := 0

	for rows.Next() {
		var (
			status, category string
			score            int
			reviewDate       *time.Time
		)
		if err := rows.Scan(&status, &category, &score, &reviewDate); err != nil {
			return nil, err
		}
		stats.Total++
		scoreSum += score
		stats.ByStatus[status]++
		stats.ByCategory[category]++
		stats.ByLevel[string(domain.LevelForScore(score))]++
		if status == domain.StatusActive {
			stats.Active++
		}
		if status == domain.StatusClosed {
			stats.Closed++
		}
		if reviewDate != nil && reviewDate.Before(now) {
			stats.OverdueReviews++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if stats.Total > 0 {
		stats.AverageScore = float64(scoreSum) / float64(stats.Total)
	}
	return stats, nil
}

func (r *riskRepository) Exists(ctx context.Context, riskID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM risks WHERE risk_id = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, riskID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Delete removes the row after the aggregate approved the precondition via
// PrepareForDeletion, then publishes the drained events.
func (r *riskRepository) Delete(ctx context.Context, risk *domain.Risk) error {
	if risk == nil {
		return domain.NewValidationError("risk is required")
	}
	const query = `DELETE FROM risks WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, risk.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
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

// UpdateStatusBulk applies the transition item by item; earlier items stay
// committed if a later one fails.
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

func (r *riskRepository) NextRiskIDNumber(ctx context.Context, prefix string) (int, error) {
	query, args, err := builder.Select("risk_id").From(risksTable).
		Where(sq.Like{"risk_id": prefix + "-%"}).
		ToSql()
	if err != nil {
		return 0, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	highest := 0
	for rows.Next() {
		var riskID string
		if err := rows.Scan(&riskID); err != nil {
			return 0, err
		}
		rest, ok := strings.CutPrefix(riskID, prefix+"-")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > highest {
			highest = n
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return highest + 1, nil
}

func (r *riskRepository) findOne(ctx context.Context, where sq.Sqlizer, lookup string) (*domain.Risk, error) {
	query, args, err := builder.Select(riskColumns...).From(risksTable).Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	risk, err := scanRisk(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("risk", lookup)
		}
		return nil, err
	}
	return risk, nil
}

func (r *riskRepository) selectRisks(ctx context.Context, where sq.Sqlizer, order string) ([]*domain.Risk, error) {
	return r.selectPage(ctx, where, order, 0, 0)
}

func (r *riskRepository) selectPage(ctx context.Context, where sq.Sqlizer, order string, limit, offset uint64) ([]*domain.Risk, error) {
	selectBuilder := builder.Select(riskColumns...).From(risksTable)
	if where != nil {
		selectBuilder = selectBuilder.Where(where)
	}
	selectBuilder = selectBuilder.OrderBy(order)
	if limit > 0 {
		selectBuilder = selectBuilder.Limit(limit).Offset(offset)
	}
	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var risks []*domain.Risk
	for rows.Next() {
		risk, err := scanRisk(rows)
		if err != nil {
			return nil, err
		}
		risks = append(risks, risk)
	}
	return risks, rows.Err()
}

func (r *riskRepository) publish(ctx context.Context, risk *domain.Risk) {
	if r.bus == nil {
		return
	}
	r.bus.PublishAll(ctx, risk.PullDomainEvents())
}

func defaultOrder() string {
	return "created_at DESC"
}

func scanRisk(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Risk, error) {
	var r riskRow
	if err := row.Scan(
		&r.ID,
		&r.RiskID,
		&r.Title,
		&r.Description,
		&r.Category,
		&r.Probability,
		&r.Impact,
		&r.Status,
		&r.OrganizationID,
		&r.OwnerID,
		&r.CreatedBy,
		&r.RiskType,
		&r.MitigationPlan,
		&r.ContingencyPlan,
		&r.ReviewDate,
		&r.LastReviewDate,
		&r.Tags,
		&r.Metadata,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	state, err := r.toState()
	if err != nil {
		return nil, err
	}
	return domain.ReconstituteRisk(state), nil
}
