package horario

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeExpandsCartesianProduct(t *testing.T) {
	set, err := Decode("24M12")
	require.NoError(t, err)

	assert.Equal(t, 4, set.Len())
	for _, slot := range []Slot{
		{Day: 2, Period: Morning, Hour: 1},
		{Day: 2, Period: Morning, Hour: 2},
		{Day: 4, Period: Morning, Hour: 1},
		{Day: 4, Period: Morning, Hour: 2},
	} {
		assert.True(t, set.Has(slot), slot.String())
	}
	assert.False(t, set.Has(Slot{Day: 3, Period: Morning, Hour: 1}))
}

func TestDecodeIsCaseInsensitiveAndIgnoresExtraWhitespace(t *testing.T) {
	lower, err := Decode("  35t34\t 6n1 ")
	require.NoError(t, err)
	upper, err := Decode("35T34 6N1")
	require.NoError(t, err)
	assert.True(t, lower.Equal(upper))
	assert.Equal(t, 5, lower.Len())
}

func TestDecodeEmpty(t *testing.T) {
	for _, input := range []string{"", "   ", "\n"} {
		set, err := Decode(input)
		require.NoError(t, err)
		assert.True(t, set.IsEmpty())
		assert.Equal(t, "", Encode(set))
	}
}

func TestDecodeRejectsMalformedTokens(t *testing.T) {
	cases := []struct {
		input string
		token string
		pos   int
	}{
		{input: "2X1", token: "2X1"},
		{input: "8M1", token: "8M1"},
		{input: "1M1", token: "1M1"},
		{input: "2M7", token: "2M7"},
		{input: "2M0", token: "2M0"},
		{input: "M12", token: "M12"},
		{input: "24M", token: "24M"},
		{input: "24", token: "24"},
		{input: "2MT1", token: "2MT1"},
		{input: "2M1a", token: "2M1a"},
		{input: "2M1 3T2 4Q1", token: "4Q1", pos: 2},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			_, err := Decode(tc.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFormatInvalid))

			var formatErr *FormatError
			require.True(t, errors.As(err, &formatErr))
			assert.Equal(t, tc.token, formatErr.Token)
			assert.Equal(t, tc.pos, formatErr.Position)
			assert.NotEmpty(t, formatErr.Reason)
		})
	}
}

func TestEncodeMergesTokens(t *testing.T) {
	cases := map[string]string{
		"2M1 3M1 4M1":      "234M1",
		"2M1 2M2 2M3":      "2M123",
		"2M12 4M12":        "24M12",
		"4M21 2M12":        "24M12",
		"6N1 2M1":          "2M1 6N1",
		"2T1 2M1":          "2M1 2T1",
		"35T34 24M12 6M12": "246M12 35T34",
		"2M1 2M1 2m1":      "2M1",
		"2M12 3M1":         "2M12 3M1",
	}
	for input, want := range cases {
		t.Run(input, func(t *testing.T) {
			got, err := Normalize(input)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestEncodeIsIndependentOfTokenOrder(t *testing.T) {
	a, err := Normalize("2M1 3M1 2M2 3M2 5T5")
	require.NoError(t, err)
	b, err := Normalize("5T5 23M2 3M1 2M1")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRoundTripRandomSets(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		var set Set
		n := rng.Intn(20)
		for j := 0; j < n; j++ {
			set = set.With(Slot{
				Day:    firstDay + rng.Intn(numDays),
				Period: Period(rng.Intn(numPeriods)),
				Hour:   firstHour + rng.Intn(numHours),
			})
		}

		encoded := Encode(set)
		decoded, err := Decode(encoded)
		require.NoError(t, err, encoded)
		assert.True(t, decoded.Equal(set), encoded)

		again, err := Decode(Encode(decoded))
		require.NoError(t, err)
		assert.True(t, again.Equal(set))
		assert.Equal(t, encoded, Encode(again))
	}
}

func TestSetOperations(t *testing.T) {
	a, err := Decode("2M1 3M1")
	require.NoError(t, err)
	b, err := Decode("3M1 4M1")
	require.NoError(t, err)

	assert.True(t, a.Overlaps(b))
	assert.Equal(t, "3M1", a.Intersect(b).String())
	assert.Equal(t, "234M1", a.Union(b).String())
	assert.Equal(t, []Slot{{Day: 2, Period: Morning, Hour: 1}, {Day: 3, Period: Morning, Hour: 1}}, a.Slots())
	assert.False(t, a.Has(Slot{Day: 9, Period: Morning, Hour: 1}))
}

func TestFullWeekFitsInSet(t *testing.T) {
	set, err := Decode("234567M123456 234567T123456 234567N123456")
	require.NoError(t, err)
	assert.Equal(t, MaxSlots, set.Len())
	assert.Equal(t, "234567M123456 234567T123456 234567N123456", Encode(set))
}
