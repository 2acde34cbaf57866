package numfmt_test

import (
	"math"
	"testing"

	"github.com/spssio/spssio/numfmt"
	"github.com/spssio/spssio/numsys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Base 30's digit alphabet agrees with decimal for digit values 0-9, but
// place weights are powers of 30, not 10 -- so these expected values are
// worked out arithmetically in base 30, not copied from the literal text.

func TestParseBasicInteger(t *testing.T) {
	ns := numsys.Default30()

	// "10" in base 30 is 1*30 + 0 = 30.
	res, err := numfmt.Parse("10", ns)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, res.Value, 1e-9)
	assert.Equal(t, 1, res.Sign)
}

func TestParseFraction(t *testing.T) {
	ns := numsys.Default30()

	// "1.F" is 1 + 15/30 = 1.5.
	res, err := numfmt.Parse("1.F", ns)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, res.Value, 1e-9)
}

func TestParseNegativeAndExponent(t *testing.T) {
	ns := numsys.Default30()

	// "-2+2" is -(2 * 30^2) = -1800.
	res, err := numfmt.Parse("-2+2", ns)
	require.NoError(t, err)
	assert.Equal(t, -1, res.Sign)
	assert.Equal(t, 2, res.Exponent)
	assert.InDelta(t, -1800.0, res.Value, 1e-9)
}

func TestParseSystemMissing(t *testing.T) {
	ns := numsys.Default30()

	_, err := numfmt.Parse("*", ns)
	require.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	ns := numsys.Default30()

	_, err := numfmt.Parse("", ns)
	require.Error(t, err)
}

func TestParseLeadingWhitespace(t *testing.T) {
	ns := numsys.Default30()

	res, err := numfmt.Parse("  5", ns)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, res.Value, 1e-9)
}

func TestParseRejectsTrailingGarbage(t *testing.T) {
	ns := numsys.Default30()

	_, err := numfmt.Parse("12@", ns)
	require.Error(t, err)
}

// Round-trip Parse(Format(x)) should reproduce x within the backend's
// representable precision for an ordinary in-range magnitude.
func TestFormatParseRoundTrip(t *testing.T) {
	ns := numsys.Default30()

	for _, v := range []float64{1, 0.5, 123.456, 1e10, 1e-10, 3.14159265} {
		s, err := numfmt.Format(v, ns, 15)
		require.NoError(t, err)

		res, err := numfmt.Parse(s, ns)
		require.NoError(t, err)
		assert.InEpsilon(t, v, res.Value, 1e-9, "format=%q", s)
	}
}

func TestFormatZero(t *testing.T) {
	ns := numsys.Default30()

	s, err := numfmt.Format(0, ns, 10)
	require.NoError(t, err)
	assert.Equal(t, "0", s)
}

func TestFormatFixedPoint(t *testing.T) {
	ns := numsys.Default30()

	s, err := numfmt.Format(123.45, ns, 10)
	require.NoError(t, err)
	assert.NotContains(t, s, "+")
}

func TestFormatExponentNotation(t *testing.T) {
	ns := numsys.Default30()

	// A large magnitude forces exponent notation once e exceeds k.
	s, err := numfmt.Format(1e30, ns, 5)
	require.NoError(t, err)
	assert.Contains(t, s, "+")
}

func TestFormatRejectsNonFinite(t *testing.T) {
	ns := numsys.Default30()

	_, err := numfmt.Format(math.NaN(), ns, 5)
	require.Error(t, err)

	_, err = numfmt.Format(math.Inf(1), ns, 5)
	require.Error(t, err)
}

func TestReshapeBetweenBases(t *testing.T) {
	src := numsys.Default30()
	dst := numsys.Default64()

	s, err := numfmt.Reshape("123.45", src, dst, 12)
	require.NoError(t, err)
	assert.NotEmpty(t, s)

	back, err := numfmt.Reshape(s, dst, src, 12)
	require.NoError(t, err)

	orig, err := numfmt.Parse("123.45", src)
	require.NoError(t, err)
	roundTripped, err := numfmt.Parse(back, src)
	require.NoError(t, err)

	assert.InEpsilon(t, orig.Value, roundTripped.Value, 1e-9)
}

func TestReshapeSameBaseIsIdentityish(t *testing.T) {
	ns := numsys.Default30()

	s, err := numfmt.Reshape("7.F", ns, ns, 5)
	require.NoError(t, err)

	res, err := numfmt.Parse(s, ns)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, res.Value, 1e-9)
}

func TestReshapeSystemMissing(t *testing.T) {
	ns := numsys.Default30()

	_, err := numfmt.Reshape("*", ns, ns, 5)
	require.Error(t, err)
}

func TestFastAndPreciseBackendsAgreeOnOrdinaryValues(t *testing.T) {
	ns := numsys.Default30()

	fast, err := numfmt.Format(123.456, ns, 10, numfmt.WithBackend(numfmt.BackendFast))
	require.NoError(t, err)

	precise, err := numfmt.Format(123.456, ns, 10, numfmt.WithBackend(numfmt.BackendPrecise))
	require.NoError(t, err)

	fastRes, err := numfmt.Parse(fast, ns)
	require.NoError(t, err)
	preciseRes, err := numfmt.Parse(precise, ns)
	require.NoError(t, err)

	assert.InEpsilon(t, preciseRes.Value, fastRes.Value, 1e-6)
}
