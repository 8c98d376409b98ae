package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeValidation ErrorCode = "VALIDATION"
	ErrCodeDomain     ErrorCode = "DOMAIN_RULE"
	ErrCodeInternal   ErrorCode = "INTERNAL"
)

// Business rule codes carried by DomainError.
const (
	RuleInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	RuleMitigationPlanRequired  = "MITIGATION_PLAN_REQUIRED"
	RuleRiskNotDeletable        = "RISK_NOT_DELETABLE"
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidationError reports structural input errors. It is always recoverable
// by the caller correcting the input.
type ValidationError struct {
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

// NewValidationError builds a validation error from field entries.
func NewValidationError(message string, fields ...FieldError) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// NotFoundError is raised when a lookup by id returns nothing.
type NotFoundError struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// NewNotFoundError builds a not-found error for an entity lookup.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// DomainError reports a business-rule violation: structurally valid input that
// the aggregate's rules disallow.
type DomainError struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// NewDomainError builds a domain error carrying the violated rule code.
func NewDomainError(rule, message string) *DomainError {
	return &DomainError{Rule: rule, Message: message}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsDomainRule reports whether err is a DomainError violating the given rule.
// An empty rule matches any domain error.
func IsDomainRule(err error, rule string) bool {
	var target *DomainError
	if !errors.As(err, &target) {
		return false
	}
	return rule == "" || target.Rule == rule
}

// CodeOf maps an error to its transport-facing classification.
func CodeOf(err error) ErrorCode {
	switch {
	case IsValidation(err):
		return ErrCodeValidation
	case IsNotFound(err):
		return ErrCodeNotFound
	case IsDomainRule(err, ""):
		return ErrCodeDomain
	default:
		return ErrCodeInternal
	}
}
