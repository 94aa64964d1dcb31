package validator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2023-01-01", "2000-12-31", "2024-02-29"}
	invalid := []string{"2023-13-01", "2023-02-30", "01-01-2023", "", "2023/01/01"}
	for _, d := range valid {
		if _, ok := IsValidDate(d); !ok {
			t.Errorf("IsValidDate(%q) = false, want true", d)
		}
	}
	for _, d := range invalid {
		if _, ok := IsValidDate(d); ok {
			t.Errorf("IsValidDate(%q) = true, want false", d)
		}
	}
}

func TestIsValidPeriod(t *testing.T) {
	assert.True(t, IsValidPeriod(2024, 1))
	assert.True(t, IsValidPeriod(2024, 12))
	assert.False(t, IsValidPeriod(2024, 0))
	assert.False(t, IsValidPeriod(2024, 13))
	assert.False(t, IsValidPeriod(1999, 5))
}

func TestIsNonNegative(t *testing.T) {
	assert.True(t, IsNonNegative(decimal.Zero))
	assert.True(t, IsNonNegative(decimal.RequireFromString("0.01")))
	assert.False(t, IsNonNegative(decimal.RequireFromString("-0.01")))
}

func TestParseDecimal(t *testing.T) {
	d, err := ParseDecimal(" 13577.08 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("13577.08")))

	_, err = ParseDecimal("12,5")
	assert.Error(t, err)
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	assert.NoError(t, errs.Err())

	errs.Add("status", "is invalid")
	errs.Add("ot_hours", "must not be negative")

	prefixed := errs.Prefixed("events[3]")
	assert.Equal(t, map[string]string{
		"events[3].status":   "is invalid",
		"events[3].ot_hours": "must not be negative",
	}, prefixed.ToMap())
	assert.Equal(t, "status: is invalid; ot_hours: must not be negative", errs.Error())
	assert.Error(t, errs.Err())
}
