package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/apiclient"
)

type stubSource struct {
	templates []apiclient.Template
	err       error
}

func (s stubSource) ListTemplates(context.Context, int) ([]apiclient.Template, error) {
	return s.templates, s.err
}

func TestLoadBuildsCards(t *testing.T) {
	c := New(stubSource{templates: []apiclient.Template{
		{ID: "classic-wreath", Title: "Classic Wreath", Price: 1.99},
		{ID: "snowy-pine", Title: "Snowy Pine", Price: 1.49, ImageURL: "https://img/snowy.png"},
		{ID: "mystery", Title: "Mystery Card"},
	}})

	cards, err := c.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, cards, 3)

	assert.Equal(t, "$1.99", cards[0].PriceLabel)
	assert.EqualValues(t, 199, cards[0].PriceCents)
	assert.Equal(t, "🎄", cards[0].Badge)
	assert.Equal(t, "/order?template=classic-wreath", cards[0].OrderPath)

	assert.Equal(t, "https://img/snowy.png", cards[1].ImageURL)

	assert.Equal(t, DefaultPrice, cards[2].Price)
	assert.Equal(t, "$1.00", cards[2].PriceLabel)
	assert.Equal(t, "🎁", cards[2].Badge)

	found, err := c.Find("snowy-pine")
	require.NoError(t, err)
	assert.Equal(t, "Snowy Pine", found.Title)

	_, err = c.Find("nope")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestLoadKeepsPreviousCardsOnError(t *testing.T) {
	src := &stubSource{templates: []apiclient.Template{{ID: "a", Title: "A", Price: 1.79}}}
	c := New(src)
	_, err := c.Load(context.Background())
	require.NoError(t, err)

	src.err = errors.New("offline")
	_, err = c.Load(context.Background())
	require.Error(t, err)
	assert.Len(t, c.Cards(), 1)
}

func TestCentsIsExact(t *testing.T) {
	for _, tc := range []struct {
		price float64
		want  int64
	}{
		{1.49, 149},
		{1.79, 179},
		{1.99, 199},
		{0.29, 29},
		{0.57, 57},
	} {
		assert.Equal(t, tc.want, Cents(tc.price), "price %v", tc.price)
	}
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "$4.47", FormatCents(447, "usd"))
	assert.Equal(t, "$0.00", FormatCents(0, "USD"))
	assert.Equal(t, "-$1.50", FormatCents(-150, "usd"))
	assert.Equal(t, "$1.49", FormatCents(149, "not-a-currency"))
}

func TestBadge(t *testing.T) {
	assert.Equal(t, "✨", Badge("Elegant Gold"))
	assert.Equal(t, "🎄", Badge("Classic Wreath"))
	assert.Equal(t, "🎁", Badge("Modern Minimal"))
}
