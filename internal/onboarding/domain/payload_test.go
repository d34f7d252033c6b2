package domain

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validProfilePayload() *ProfilePayload {
	return &ProfilePayload{
		Handle:      "jazz_hands",
		DisplayName: "Jazz Hands",
		Bio:         strings.Repeat("performing artist ", 5),
		Categories:  []string{"music"},
	}
}

func TestProfilePayloadValidate(t *testing.T) {
	assert.NoError(t, validProfilePayload().Validate())

	tests := []struct {
		name   string
		mutate func(*ProfilePayload)
		field  string
	}{
		{"handle too short", func(p *ProfilePayload) { p.Handle = "ab" }, "handle"},
		{"handle bad chars", func(p *ProfilePayload) { p.Handle = "has space" }, "handle"},
		{"handle leading underscore", func(p *ProfilePayload) { p.Handle = "_lead" }, "handle"},
		{"missing display name", func(p *ProfilePayload) { p.DisplayName = "  " }, "display_name"},
		{"bio too short", func(p *ProfilePayload) { p.Bio = "short bio" }, "bio"},
		{"no categories", func(p *ProfilePayload) { p.Categories = nil }, "categories"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProfilePayload()
			tt.mutate(p)
			err := p.Validate()
			var validation *ValidationError
			assert.ErrorAs(t, err, &validation)
			assert.Equal(t, tt.field, validation.Field)
		})
	}
}

func TestProfilePayloadHandleCaseInsensitive(t *testing.T) {
	p := validProfilePayload()
	p.Handle = "  Jazz_Hands  "
	// 校验按规整后的 handle 做
	assert.NoError(t, p.Validate())
	assert.Equal(t, "jazz_hands", CanonicalHandle(p.Handle))
}

func TestMonetizationPayloadValidate(t *testing.T) {
	minPrice := decimal.NewFromInt(5)

	disabled := &MonetizationPayload{Enabled: false}
	assert.NoError(t, disabled.Validate(minPrice))

	below := &MonetizationPayload{Enabled: true, Price: decimal.NewFromInt(1), Currency: "USD"}
	var validation *ValidationError
	assert.ErrorAs(t, below.Validate(minPrice), &validation)
	assert.Equal(t, "price", validation.Field)

	ok := &MonetizationPayload{Enabled: true, Price: decimal.NewFromInt(10), Currency: "USD"}
	assert.NoError(t, ok.Validate(minPrice))

	noCurrency := &MonetizationPayload{Enabled: true, Price: decimal.NewFromInt(10)}
	assert.ErrorAs(t, noCurrency.Validate(minPrice), &validation)
}

func TestMediaPayloadValidate(t *testing.T) {
	var validation *ValidationError
	assert.ErrorAs(t, (&MediaPayload{}).Validate(), &validation)
	assert.NoError(t, (&MediaPayload{URL: "https://cdn.example.com/m/1.mp4"}).Validate())
}
