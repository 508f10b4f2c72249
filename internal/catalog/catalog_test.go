package catalog

import (
	"bytes"
	"context"
	"testing"

	"storefront/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	products, err := decode(context.Background(), bytes.NewReader(gzipLines(t, []string{logoLine, "", "   ", cardLine, retiredLine})))

	require.NoError(t, err)
	require.Len(t, products, 3)

	logo := products[0]
	assert.Equal(t, "logo", logo.ID)
	assert.Equal(t, "/img/logo.png", logo.Image)
	assert.True(t, logo.IsActive)
	assert.True(t, decimal.RequireFromString("50").Equal(logo.BasePrice))
	require.Len(t, logo.Options, 2)
	assert.Equal(t, model.OptionValue("large"), logo.Options[0].Values[1].Value)

	assert.True(t, decimal.NewFromInt(5).Equal(products[1].BasePrice))
	assert.False(t, products[2].IsActive)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name     string
		payload  []byte
		errMatch string
	}{
		{name: "Not gzip", payload: []byte("plain text"), errMatch: "gzip"},
		{name: "Malformed JSON", payload: gzipLines(t, []string{cardLine, "{not json"}), errMatch: "line 2"},
		{name: "Invalid product", payload: gzipLines(t, []string{`{"id":"x","basePrice":"1"}`}), errMatch: "name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode(context.Background(), bytes.NewReader(tt.payload))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMatch)
		})
	}
}

func TestValidate(t *testing.T) {
	base := func() model.Product {
		return model.Product{ID: "p", Name: "P", BasePrice: decimal.NewFromInt(1)}
	}

	tests := []struct {
		name    string
		mutate  func(p *model.Product)
		wantErr string
	}{
		{name: "Valid", mutate: func(p *model.Product) {}},
		{name: "Missing id", mutate: func(p *model.Product) { p.ID = "" }, wantErr: "id is required"},
		{name: "Negative price", mutate: func(p *model.Product) { p.BasePrice = decimal.NewFromInt(-1) }, wantErr: "negative"},
		{
			name: "Select without values",
			mutate: func(p *model.Product) {
				p.Options = []model.ProductOption{{Name: "size", Type: model.OptionSelect}}
			},
			wantErr: "has no values",
		},
		{
			name: "Repeated select value",
			mutate: func(p *model.Product) {
				p.Options = []model.ProductOption{{Name: "size", Type: model.OptionSelect, Values: []model.OptionChoice{{Value: "s"}, {Value: "s"}}}}
			},
			wantErr: "repeats value",
		},
		{
			name: "Number with inverted bounds",
			mutate: func(p *model.Product) {
				p.Options = []model.ProductOption{{Name: "n", Type: model.OptionNumber, Min: 5, Max: 1}}
			},
			wantErr: "min greater than max",
		},
		{
			name: "Duplicate option",
			mutate: func(p *model.Product) {
				p.Options = []model.ProductOption{{Name: "n", Type: model.OptionNumber}, {Name: "n", Type: model.OptionNumber}}
			},
			wantErr: "duplicate option",
		},
		{
			name: "Unknown option type",
			mutate: func(p *model.Product) {
				p.Options = []model.ProductOption{{Name: "n", Type: "colour"}}
			},
			wantErr: "unknown type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(&p)

			err := Validate(p)

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
