package domain

// Risk level thresholds derived from probability x impact.
const (
	criticalThreshold  = 20
	highThreshold      = 12
	mediumThreshold    = 6
	attentionThreshold = 15
)

// RiskLevel is the four-tier classification derived from a score.
type RiskLevel string

const (
	LevelLow      RiskLevel = "low"
	LevelMedium   RiskLevel = "medium"
	LevelHigh     RiskLevel = "high"
	LevelCritical RiskLevel = "critical"
)

// LevelForScore classifies a raw score value.
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= criticalThreshold:
		return LevelCritical
	case score >= highThreshold:
		return LevelHigh
	case score >= mediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Score is the immutable probability/impact value object. The derived score
// is always probability x impact.
type Score struct {
	probability int
	impact      int
}

// NewScore validates both inputs against the [1,5] range.
func NewScore(probability, impact int) (Score, error) {
	var fields []FieldError
	if probability < 1 || probability > 5 {
		fields = append(fields, FieldError{Field: "probability", Message: "must be between 1 and 5", Value: probability})
	}
	if impact < 1 || impact > 5 {
		fields = append(fields, FieldError{Field: "impact", Message: "must be between 1 and 5", Value: impact})
	}
	if len(fields) > 0 {
		return Score{}, NewValidationError("invalid risk score", fields...)
	}
	return Score{probability: probability, impact: impact}, nil
}

// MustScore is a test/reconstitution helper that panics on invalid input.
func MustScore(probability, impact int) Score {
	s, err := NewScore(probability, impact)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Score) Probability() int { return s.probability }
func (s Score) Impact() int      { return s.impact }

// Value returns the derived score, probability x impact.
func (s Score) Value() int { return s.probability * s.impact }

// Level returns the four-tier classification of the score.
func (s Score) Level() RiskLevel { return LevelForScore(s.Value()) }

// IsCritical reports whether the score reaches the critical threshold.
func (s Score) IsCritical() bool { return s.Value() >= criticalThreshold }

// IsHighOrCritical reports whether the score reaches the high threshold.
func (s Score) IsHighOrCritical() bool { return s.Value() >= highThreshold }

// NeedsImmediateAttention reports whether the score warrants immediate review.
func (s Score) NeedsImmediateAttention() bool { return s.Value() >= attentionThreshold }

// Update returns a new Score with the given values; the receiver is unchanged.
func (s Score) Update(probability, impact int) (Score, error) {
	return NewScore(probability, impact)
}

// Equal compares scores field by field.
func (s Score) Equal(other Score) bool {
	return s.probability == other.probability && s.impact == other.impact
}
