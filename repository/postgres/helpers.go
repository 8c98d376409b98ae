package postgres

import (
	"encoding/json"

	sq "github.com/Masterminds/squirrel"

	"github.com/riskops/backend/repository"
)

// builder is the shared squirrel builder configured for pgx placeholders.
var builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// filterConjunction translates a repository.Filter into squirrel predicates:
// fields combine with AND, multi-valued fields with OR within the field, and
// risk levels become score-range predicates.
func filterConjunction(filter repository.Filter) sq.And {
	var and sq.And

	if filter.OrganizationID != nil {
		and = append(and, sq.Eq{"organization_id": *filter.OrganizationID})
	}
	if filter.OwnerID != nil {
		and = append(and, sq.Eq{"owner_id": *filter.OwnerID})
	}
	if filter.RiskType != "" {
		and = append(and, sq.Eq{"risk_type": filter.RiskType})
	}
	if len(filter.Statuses) > 0 {
		and = append(and, sq.Eq{"status": filter.Statuses})
	}
	if len(filter.Categories) > 0 {
		and = append(and, sq.Eq{"category": filter.Categories})
	}
	if len(filter.RiskLevels) > 0 {
		var levels sq.Or
		for _, level := range filter.RiskLevels {
			min, max, ok := repository.LevelScoreRange(level)
			if !ok {
				continue
			}
			levels = append(levels, sq.And{
				sq.GtOrEq{"probability * impact": min},
				sq.LtOrEq{"probability * impact": max},
			})
		}
		if len(levels) > 0 {
			and = append(and, levels)
		}
	}
	if len(filter.Tags) > 0 {
		var tags sq.Or
		for _, tag := range filter.Tags {
			tags = append(tags, sq.Expr("tags @> ?::jsonb", jsonArray(tag)))
		}
		and = append(and, tags)
	}
	if filter.SearchText != "" {
		needle := "%" + filter.SearchText + "%"
		and = append(and, sq.Or{
			sq.ILike{"title": needle},
			sq.ILike{"description": needle},
		})
	}
	return and
}

// orderClause maps an allow-listed sort to SQL, falling back to created_at.
func orderClause(by repository.Sort) string {
	var column string
	switch repository.SortField(by.Field) {
	case repository.SortByScore:
		column = "probability * impact"
	case repository.SortByUpdatedAt:
		column = "updated_at"
	case repository.SortByTitle:
		column = "lower(title)"
	case repository.SortByStatus:
		column = "status"
	default:
		column = "created_at"
	}
	if by.Descending {
		return column + " DESC"
	}
	return column + " ASC"
}

func jsonArray(value string) string {
	b, _ := json.Marshal([]string{value})
	return string(b)
}
