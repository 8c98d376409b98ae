package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCategory(t *testing.T) {
	c, err := NewCategory("Cybersecurity")
	require.NoError(t, err)
	assert.Equal(t, "cybersecurity", c.String())
	assert.Equal(t, "Cybersecurity", c.Label())
	assert.Equal(t, "shield", c.Icon())

	// Spaces normalize to underscores.
	c, err = NewCategory("Human Resources")
	require.NoError(t, err)
	assert.Equal(t, "human_resources", c.String())
	assert.Equal(t, "users", c.Icon())

	_, err = NewCategory("astrology")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestCategoryCatalog(t *testing.T) {
	values := CategoryValues()
	assert.Len(t, values, 15)
	for _, value := range values {
		c := MustCategory(value)
		assert.NotEmpty(t, c.Label(), value)
		assert.NotEmpty(t, c.Icon(), value)
	}
}

func TestCategoryEqual(t *testing.T) {
	assert.True(t, MustCategory("legal").Equal(MustCategory("Legal")))
	assert.False(t, MustCategory("legal").Equal(MustCategory("market")))
}
