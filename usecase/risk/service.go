package risk

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/riskops/backend/domain"
	"github.com/riskops/backend/repository"
)

// StatsCache abstracts the statistics cache so the service stays
// storage-agnostic. A nil cache disables caching.
type StatsCache interface {
	Get(ctx context.Context, organizationID *int64) (*repository.Statistics, error)
	Set(ctx context.Context, organizationID *int64, stats *repository.Statistics) error
	Invalidate(ctx context.Context, organizationID int64) error
}

// Service orchestrates the risk commands and queries: it validates the
// incoming shape, loads the aggregate through the repository, lets the
// aggregate enforce its rules, and maps the result to a response shape.
// Validation and domain errors propagate to the transport layer untouched.
type Service struct {
	risks  repository.RiskRepository
	cache  StatsCache
	logger *zap.Logger
}

// New builds a risk service.
func New(risks repository.RiskRepository, cache StatsCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		risks:  risks,
		cache:  cache,
		logger: logger,
	}
}

// Create validates the command, allocates a business identifier when none is
// supplied, and persists a new risk.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Response, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	riskID := cmd.RiskID
	if riskID == "" {
		n, err := s.risks.NextRiskIDNumber(ctx, DefaultRiskIDPrefix)
		if err != nil {
			return nil, err
		}
		riskID = fmt.Sprintf("%s-%03d", DefaultRiskIDPrefix, n)
	} else {
		exists, err := s.risks.Exists(ctx, riskID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, domain.NewValidationError("invalid create command",
				domain.FieldError{Field: "risk_id", Message: "already exists", Value: riskID})
		}
	}

	risk, err := domain.NewRisk(domain.NewRiskInput{
		RiskID:          riskID,
		Title:           cmd.Title,
		Description:     cmd.Description,
		Category:        cmd.Category,
		Probability:     cmd.Probability,
		Impact:          cmd.Impact,
		OrganizationID:  cmd.OrganizationID,
		OwnerID:         cmd.OwnerID,
		CreatedBy:       cmd.CreatedBy,
		RiskType:        cmd.RiskType,
		MitigationPlan:  cmd.MitigationPlan,
		ContingencyPlan: cmd.ContingencyPlan,
		ReviewDate:      cmd.ReviewDate,
		Tags:            cmd.Tags,
		Metadata:        cmd.Metadata,
	})
	if err != nil {
		return nil, err
	}

	if err := s.risks.Save(ctx, risk); err != nil {
		return nil, err
	}
	s.invalidateStats(ctx, risk.OrganizationID())

	s.logger.Info("risk created",
		zap.String("risk_id", risk.RiskID()),
		zap.Int("score", risk.Score().Value()))
	return NewResponse(risk), nil
}

// Update applies the supplied fields through the aggregate methods and saves
// once, so all buffered events publish in a single persistence cycle.
func (s *Service) Update(ctx context.Context, cmd UpdateCommand) (*Response, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	risk, err := s.risks.FindByID(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}

	if err := risk.UpdateDetails(domain.UpdateDetailsInput{
		Title:           cmd.Title,
		Description:     cmd.Description,
		Category:        cmd.Category,
		MitigationPlan:  cmd.MitigationPlan,
		ContingencyPlan: cmd.ContingencyPlan,
		Tags:            cmd.Tags,
		Metadata:        cmd.Metadata,
	}); err != nil {
		return nil, err
	}
	if cmd.Probability != nil && cmd.Impact != nil {
		if err := risk.UpdateScore(*cmd.Probability, *cmd.Impact); err != nil {
			return nil, err
		}
	}
	if cmd.OwnerID != nil {
		if err := risk.AssignTo(*cmd.OwnerID); err != nil {
			return nil, err
		}
	}
	if cmd.ReviewDate != nil {
		if err := risk.ScheduleReview(*cmd.ReviewDate); err != nil {
			return nil, err
		}
	}

	if err := s.risks.Save(ctx, risk); err != nil {
		return nil, err
	}
	s.invalidateStats(ctx, risk.OrganizationID())
	return NewResponse(risk), nil
}

// ChangeStatus moves a risk through the lifecycle state machine.
func (s *Service) ChangeStatus(ctx context.Context, cmd ChangeStatusCommand) (*Response, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	risk, err := s.risks.FindByID(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	if err := risk.ChangeStatus(cmd.Status, cmd.Reason); err != nil {
		return nil, err
	}
	if err := s.risks.Save(ctx, risk); err != nil {
		return nil, err
	}
	s.invalidateStats(ctx, risk.OrganizationID())
	return NewResponse(risk), nil
}

// Delete removes a risk after the aggregate approves the deletion
// precondition.
func (s *Service) Delete(ctx context.Context, cmd DeleteCommand) (*DeletionResponse, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	risk, err := s.risks.FindByID(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	if err := risk.PrepareForDeletion(); err != nil {
		return nil, err
	}
	if err := s.risks.Delete(ctx, risk); err != nil {
		return nil, err
	}
	s.invalidateStats(ctx, risk.OrganizationID())

	s.logger.Info("risk deleted", zap.String("risk_id", risk.RiskID()))
	return &DeletionResponse{
		RiskID:    risk.RiskID(),
		Deleted:   true,
		DeletedAt: time.Now().UTC(),
	}, nil
}

// BulkChangeStatus applies the transition to each risk independently and
// reports per-item failures; it never aborts on a single bad item.
func (s *Service) BulkChangeStatus(ctx context.Context, cmd BulkStatusCommand) (*BulkResponse, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	result := &BulkResponse{}
	orgs := make(map[int64]struct{})
	for _, id := range cmd.IDs {
		if err := s.changeOne(ctx, id, cmd.Status, cmd.Reason, orgs); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkItemError{ID: id, Message: err.Error()})
			continue
		}
		result.Succeeded++
	}
	for org := range orgs {
		s.invalidateStats(ctx, org)
	}
	return result, nil
}

func (s *Service) changeOne(ctx context.Context, id int64, status, reason string, orgs map[int64]struct{}) error {
	risk, err := s.risks.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := risk.ChangeStatus(status, reason); err != nil {
		return err
	}
	if err := s.risks.Save(ctx, risk); err != nil {
		return err
	}
	orgs[risk.OrganizationID()] = struct{}{}
	return nil
}

// Get fetches one risk by storage id.
func (s *Service) Get(ctx context.Context, query GetQuery) (*Response, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	risk, err := s.risks.FindByID(ctx, query.ID)
	if err != nil {
		return nil, err
	}
	return NewResponse(risk), nil
}

// List returns a filtered, sorted page of risks.
func (s *Service) List(ctx context.Context, query ListQuery) (*ListResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	result, err := s.risks.List(ctx, query.toRepository())
	if err != nil {
		return nil, err
	}
	return NewListResponse(result), nil
}

// Search matches free text against titles and descriptions.
func (s *Service) Search(ctx context.Context, query SearchQuery) ([]ListItem, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	risks, err := s.risks.Search(ctx, query.Text, query.OrganizationID)
	if err != nil {
		return nil, err
	}
	items := make([]ListItem, 0, len(risks))
	for _, r := range risks {
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
	return items, nil
}

// GetStatistics aggregates the risk set, reading through the cache when one
// is configured.
func (s *Service) GetStatistics(ctx context.Context, query StatisticsQuery) (*StatisticsResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, query.OrganizationID)
		if err != nil {
			s.logger.Warn("statistics cache read failed", zap.Error(err))
		} else if cached != nil {
			return NewStatisticsResponse(cached), nil
		}
	}

	stats, err := s.risks.GetStatistics(ctx, query.OrganizationID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, query.OrganizationID, stats); err != nil {
			s.logger.Warn("statistics cache write failed", zap.Error(err))
		}
	}
	return NewStatisticsResponse(stats), nil
}

func (s *Service) invalidateStats(ctx context.Context, organizationID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, organizationID); err != nil {
		s.logger.Warn("statistics cache invalidation failed", zap.Error(err))
	}
}
