// Package suggestions holds the canned design ideas offered while customizing a card,
// keyed by occasion and recipient.
package suggestions

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Occasion is the event a card is sent for.
type Occasion int

const (
	Holiday Occasion = iota
	Birthday
)

func (o Occasion) String() string {
	switch o {
	case Birthday:
		return "birthday"
	default:
		return "holiday"
	}
}

// Recipient is who the card is addressed to.
type Recipient int

const (
	Family Recipient = iota
	Friends
	Business
)

func (r Recipient) String() string {
	switch r {
	case Friends:
		return "friends"
	case Business:
		return "business"
	default:
		return "family"
	}
}

// ParseOccasion maps a case-insensitive name to an Occasion.
func ParseOccasion(s string) (Occasion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "holiday", "":
		return Holiday, nil
	case "birthday":
		return Birthday, nil
	default:
		return Holiday, fmt.Errorf("suggestions: unknown occasion %q", s)
	}
}

// ParseRecipient maps a case-insensitive name to a Recipient.
func ParseRecipient(s string) (Recipient, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "family", "":
		return Family, nil
	case "friends", "friend":
		return Friends, nil
	case "business":
		return Business, nil
	default:
		return Family, fmt.Errorf("suggestions: unknown recipient %q", s)
	}
}

// Position is a text anchor in percent of the preview.
type Position struct {
	X float64
	Y float64
}

// Suggestion is one ready-made overlay.
type Suggestion struct {
	Text       string
	FontSize   int
	FontFamily string
	TextColor  string
	Position   Position
}

type key struct {
	occasion  Occasion
	recipient Recipient
}

var table = map[key][]Suggestion{
	{Holiday, Family}: {
		{Text: "Warmest wishes for a joyful holiday season filled with love and laughter!", FontSize: 24, FontFamily: "serif", TextColor: "#dc2626", Position: Position{50, 30}},
		{Text: "May your holidays be merry and bright, surrounded by those you love most.", FontSize: 28, FontFamily: "cursive", TextColor: "#16a34a", Position: Position{50, 70}},
		{Text: "Season's Greetings! Wishing you peace, joy, and happiness this holiday.", FontSize: 32, FontFamily: "serif", TextColor: "#ffffff", Position: Position{50, 50}},
	},
	{Holiday, Friends}: {
		{Text: "Cheers to the holidays! Here's to good times and great friends like you!", FontSize: 26, FontFamily: "sans-serif", TextColor: "#9333ea", Position: Position{50, 40}},
		{Text: "Happy Holidays! May your season be as awesome as our friendship!", FontSize: 24, FontFamily: "cursive", TextColor: "#ea580c", Position: Position{50, 60}},
	},
	{Holiday, Business}: {
		{Text: "Season's Greetings from our team to yours. Wishing you success in the new year!", FontSize: 20, FontFamily: "serif", TextColor: "#000000", Position: Position{50, 50}},
		{Text: "Happy Holidays! Thank you for your partnership and trust throughout the year.", FontSize: 22, FontFamily: "sans-serif", TextColor: "#2563eb", Position: Position{50, 45}},
	},
	{Birthday, Family}: {
		{Text: "Happy Birthday to someone who makes life more beautiful!", FontSize: 28, FontFamily: "cursive", TextColor: "#dc2626", Position: Position{50, 50}},
		{Text: "Celebrating YOU today! Wishing you the happiest of birthdays!", FontSize: 32, FontFamily: "serif", TextColor: "#9333ea", Position: Position{50, 40}},
	},
	{Birthday, Friends}: {
		{Text: "Another year older, another year wiser! Happy Birthday, my friend!", FontSize: 24, FontFamily: "sans-serif", TextColor: "#ea580c", Position: Position{50, 45}},
	},
}

// Lookup returns the suggestions for occasion and recipient. Combinations without
// entries fall back to Holiday/Family and report ok=false. The result is a copy.
func Lookup(occasion Occasion, recipient Recipient) ([]Suggestion, bool) {
	list, ok := table[key{occasion, recipient}]
	if !ok {
		list = table[key{Holiday, Family}]
	}
	return append([]Suggestion(nil), list...), ok
}

// Shuffle returns list in a new random order. A nil r uses the global source.
func Shuffle(list []Suggestion, r *rand.Rand) []Suggestion {
	out := append([]Suggestion(nil), list...)
	swap := func(i, j int) { out[i], out[j] = out[j], out[i] }
	if r == nil {
		rand.Shuffle(len(out), swap)
		return out
	}
	r.Shuffle(len(out), swap)
	return out
}
