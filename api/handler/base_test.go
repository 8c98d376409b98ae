package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/riskops/backend/domain"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation",
			err:        domain.NewValidationError("bad input", domain.FieldError{Field: "title", Message: "is required"}),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION",
		},
		{
			name:       "not found",
			err:        domain.NewNotFoundError("risk", "42"),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "domain rule carries the rule code",
			err:        domain.NewDomainError(domain.RuleMitigationPlanRequired, "mitigation plan required"),
			wantStatus: http.StatusConflict,
			wantCode:   "MITIGATION_PLAN_REQUIRED",
		},
		{
			name:       "unknown errors stay internal",
			err:        errors.New("connection reset"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, _ := mapError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestMapErrorValidationExposesFields(t *testing.T) {
	err := domain.NewValidationError("bad input",
		domain.FieldError{Field: "probability", Message: "must be between 1 and 5", Value: 9})
	_, _, meta := mapError(err)
	fields, ok := meta.([]domain.FieldError)
	assert.True(t, ok)
	assert.Len(t, fields, 1)
	assert.Equal(t, "probability", fields[0].Field)
}
