package domain

import "strings"

// CategoryInfo carries the display metadata attached to a business category.
type CategoryInfo struct {
	Label string
	Icon  string
}

// categoryCatalog is the fixed set of 15 business categories.
var categoryCatalog = map[string]CategoryInfo{
	"strategic":       {Label: "Strategic", Icon: "compass"},
	"operational":     {Label: "Operational", Icon: "gears"},
	"financial":       {Label: "Financial", Icon: "coins"},
	"compliance":      {Label: "Compliance", Icon: "scale"},
	"cybersecurity":   {Label: "Cybersecurity", Icon: "shield"},
	"reputational":    {Label: "Reputational", Icon: "megaphone"},
	"environmental":   {Label: "Environmental", Icon: "leaf"},
	"legal":           {Label: "Legal", Icon: "gavel"},
	"market":          {Label: "Market", Icon: "chart-line"},
	"credit":          {Label: "Credit", Icon: "credit-card"},
	"liquidity":       {Label: "Liquidity", Icon: "droplet"},
	"technology":      {Label: "Technology", Icon: "cpu"},
	"human_resources": {Label: "Human Resources", Icon: "users"},
	"supply_chain":    {Label: "Supply Chain", Icon: "truck"},
	"health_safety":   {Label: "Health & Safety", Icon: "heart-pulse"},
}

// Category is the immutable business category value object.
type Category struct {
	value string
}

// NewCategory normalizes the value (lower-case, spaces to underscores) and
// rejects values outside the fixed set.
func NewCategory(value string) (Category, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), " ", "_")
	if _, ok := categoryCatalog[normalized]; !ok {
		return Category{}, NewValidationError("invalid risk category",
			FieldError{Field: "category", Message: "unknown category value", Value: value})
	}
	return Category{value: normalized}, nil
}

// MustCategory is a test/reconstitution helper that panics on invalid input.
func MustCategory(value string) Category {
	c, err := NewCategory(value)
	if err != nil {
		panic(err)
	}
	return c
}

// CategoryValues returns the category set in no particular order.
func CategoryValues() []string {
	values := make([]string, 0, len(categoryCatalog))
	for v := range categoryCatalog {
		values = append(values, v)
	}
	return values
}

func (c Category) String() string { return c.value }

// Label returns the human-facing display name.
func (c Category) Label() string { return categoryCatalog[c.value].Label }

// Icon returns the display icon identifier.
func (c Category) Icon() string { return categoryCatalog[c.value].Icon }

// Equal compares categories by value.
func (c Category) Equal(other Category) bool { return c.value == other.value }
