package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundAmount_HalfUp(t *testing.T) {
	p, err := PriceFromString("2.5")
	require.NoError(t, err)
	assert.Equal(t, Amount(3), RoundAmount(p))

	p, err = PriceFromString("2.4999")
	require.NoError(t, err)
	assert.Equal(t, Amount(2), RoundAmount(p))
}

func TestFloorAmount_TruncatesDown(t *testing.T) {
	p, err := PriceFromString("7.99")
	require.NoError(t, err)
	assert.Equal(t, Amount(7), FloorAmount(p))
}

func TestRatio_ExactDecimal(t *testing.T) {
	r := Ratio(1, 3)
	assert.Equal(t, "0.3333333333333333333333333333", r.String())
}

func TestValued_QuantityTimesUnitPrice(t *testing.T) {
	unit, err := PriceFromString("1.25")
	require.NoError(t, err)
	assert.Equal(t, Amount(125), Valued(100, unit))
}

func TestClampNonNegative(t *testing.T) {
	neg, err := PriceFromString("-5")
	require.NoError(t, err)
	assert.True(t, ClampNonNegative(neg).IsZero())

	pos, err := PriceFromString("5")
	require.NoError(t, err)
	assert.Equal(t, pos, ClampNonNegative(pos))
}

func TestPriceFromString_RejectsNonDecimal(t *testing.T) {
	_, err := PriceFromString("NaN")
	assert.Error(t, err)
	_, err = PriceFromString("not-a-number")
	assert.Error(t, err)
}

func TestMaxMinPrice(t *testing.T) {
	a := PriceFromInt(3)
	b := PriceFromInt(7)
	assert.Equal(t, b, Max(a, b))
	assert.Equal(t, a, MinPrice(a, b))
}
