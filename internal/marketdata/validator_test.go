package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestValidator_NegativeCloseHardRejected(t *testing.T) {
	v := NewValidator()
	_, err := v.Validate(Quote{Close: -1})
	require.Error(t, err)
	var failed *ErrValidationFailed
	assert.ErrorAs(t, err, &failed)
}

func TestValidator_HighLessThanLowHardRejected(t *testing.T) {
	v := NewValidator()
	_, err := v.Validate(Quote{Close: 10, High: ptr(5), Low: ptr(20), Open: ptr(10)})
	require.Error(t, err)
}

func TestValidator_ZeroVolumePasses(t *testing.T) {
	v := NewValidator()
	issues, err := v.Validate(Quote{Close: 10, Volume: ptr(0)})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, SeveritySoft, issues[0].Severity)
}

func TestValidator_CloseOnlyIsValid(t *testing.T) {
	v := NewValidator()
	issues, err := v.Validate(Quote{Close: 100})
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestValidator_CloseOutsideRangeSoftWarns(t *testing.T) {
	v := NewValidator()
	issues, err := v.Validate(Quote{Close: 100, High: ptr(50), Low: ptr(10), Open: ptr(20)})
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	for _, i := range issues {
		assert.Equal(t, SeveritySoft, i.Severity)
	}
}

func TestValidator_SanityMaxRejected(t *testing.T) {
	v := NewValidator()
	_, err := v.Validate(Quote{Close: 2_000_000_000})
	require.Error(t, err)
}
