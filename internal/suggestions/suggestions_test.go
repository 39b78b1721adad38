package suggestions

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownKeys(t *testing.T) {
	cases := []struct {
		occasion  Occasion
		recipient Recipient
		want      int
	}{
		{Holiday, Family, 3},
		{Holiday, Friends, 2},
		{Holiday, Business, 2},
		{Birthday, Family, 2},
		{Birthday, Friends, 1},
	}
	for _, tc := range cases {
		list, ok := Lookup(tc.occasion, tc.recipient)
		assert.True(t, ok, "%s/%s", tc.occasion, tc.recipient)
		assert.Len(t, list, tc.want, "%s/%s", tc.occasion, tc.recipient)
	}
}

func TestLookupFallsBackToHolidayFamily(t *testing.T) {
	list, ok := Lookup(Birthday, Business)
	require.False(t, ok)
	want, _ := Lookup(Holiday, Family)
	assert.Equal(t, want, list)

	list, ok = Lookup(Occasion(42), Recipient(7))
	assert.False(t, ok)
	assert.Equal(t, want, list)
}

func TestLookupReturnsCopy(t *testing.T) {
	list, _ := Lookup(Holiday, Family)
	list[0].Text = "changed"
	again, _ := Lookup(Holiday, Family)
	assert.NotEqual(t, "changed", again[0].Text)
}

func TestParse(t *testing.T) {
	o, err := ParseOccasion(" Birthday ")
	require.NoError(t, err)
	assert.Equal(t, Birthday, o)

	r, err := ParseRecipient("BUSINESS")
	require.NoError(t, err)
	assert.Equal(t, Business, r)

	_, err = ParseOccasion("wedding")
	assert.Error(t, err)
	_, err = ParseRecipient("pets")
	assert.Error(t, err)
}

func TestShuffleKeepsEntries(t *testing.T) {
	list, _ := Lookup(Holiday, Family)
	shuffled := Shuffle(list, rand.New(rand.NewPCG(1, 2)))
	assert.ElementsMatch(t, list, shuffled)
	assert.Len(t, Shuffle(nil, nil), 0)
}
