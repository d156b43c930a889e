package bigint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpengine/mpcore/internal/alloc"
	"github.com/mpengine/mpcore/pkg/mperrors"
)

func testLimits() Limits {
	return Limits{MinLogLen: 2, MaxLogLen: 8, DelayedAllocation: true, Pool: alloc.New(2, 1<<16)}
}

func TestParseAndFormatRoundTrip(t *testing.T) {
	cases := []struct {
		base IOBasic
		s    string
	}{
		{Dec, "123456789012345"},
		{Dec, "-42"},
		{Oct, "777"},
		{Hex, "deadbeef"},
		{Hex, "-FF"},
	}
	for _, c := range cases {
		b := NewBigInt(PrecisionToLogLen(32, c.base), c.base, testLimits())
		require.NoError(t, Parse(c.s, b))
		got := Format(b)
		want := c.s
		if len(want) > 0 && want[0] == '+' {
			want = want[1:]
		}
		assert.Equal(t, want, got)
	}
}

func TestParseRejectsEmptyString(t *testing.T) {
	b := NewBigInt(4, Dec, testLimits())
	err := Parse("", b)
	require.Error(t, err)
	assert.True(t, mperrors.IsParseError(err))
}

func TestParseRejectsOutOfRangeDigit(t *testing.T) {
	b := NewBigInt(4, Oct, testLimits())
	err := Parse("89", b)
	require.Error(t, err)
	assert.True(t, mperrors.IsParseError(err))
}

func TestFormatZeroHasNoSign(t *testing.T) {
	b := NewBigInt(4, Dec, testLimits())
	require.NoError(t, Parse("0", b))
	assert.Equal(t, "0", Format(b))
	assert.True(t, b.Sign())
}

func TestLogLenClampedToLimits(t *testing.T) {
	lim := testLimits()
	b := NewBigInt(100, Dec, lim)
	assert.Equal(t, lim.MaxLogLen, b.logLen)
	b2 := NewBigInt(0, Dec, lim)
	assert.Equal(t, lim.MinLogLen, b2.logLen)
}

func TestCompareAddSubMul(t *testing.T) {
	base := Dec.StoreBase()
	a := []uint64{5, 1} // 1*base + 5
	b := []uint64{9, 0} // 9
	c := make([]uint64, 2)

	assert.Equal(t, 1, Compare(a, b))
	overflow := AddWithCarry(a, b, c, base)
	assert.False(t, overflow)
	assert.Equal(t, []uint64{14, 1}, c)

	d := make([]uint64, 2)
	borrow := SubAGeB(a, b, d, base)
	assert.False(t, borrow)
	assert.Equal(t, []uint64{uint64(5) + base - 9, 0}, d)

	prod := make([]uint64, 4)
	Mul2Len(a, b, prod, base)
	// (1*base+5) * 9 = 9*base + 45
	assert.Equal(t, uint64(45), prod[0])
	assert.Equal(t, uint64(9), prod[1])
}

func TestAddSignedDifferingSignsEqualMagnitudeYieldsPositiveZero(t *testing.T) {
	base := Dec.StoreBase()
	a := []uint64{7, 2}
	c := make([]uint64, 2)
	sign := AddSigned(true, a, false, a, c, base)
	assert.True(t, sign)
	for _, limb := range c {
		assert.EqualValues(t, 0, limb)
	}
}

func TestReleaseIsIdempotentAndSafe(t *testing.T) {
	lim := testLimits()
	b := NewBigInt(4, Dec, lim)
	_ = b.EnsuredPointer()
	b.Release()
	b.Release()
	assert.Equal(t, "null_yet", b.Status())
}
