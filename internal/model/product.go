package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OptionType is the kind of a configurable product option.
type OptionType string

const (
	// OptionSelect picks one value from a declared list.
	OptionSelect OptionType = "select"
	// OptionNumber picks a whole quantity within [Min, Max].
	OptionNumber OptionType = "number"
)

// Product represents a catalogue product as the cart sees it.
type Product struct {
	ID        string          `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Image     string          `json:"image,omitempty" db:"image"`
	Category  string          `json:"category" db:"category"`
	BasePrice decimal.Decimal `json:"basePrice" db:"base_price"`
	Options   []ProductOption `json:"options" db:"options"`
	IsActive  bool            `json:"isActive" db:"is_active"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

// ProductOption is an option a customer may configure when adding a product.
type ProductOption struct {
	Name string     `json:"name"`
	Type OptionType `json:"type"`

	// Values is set for select options.
	Values []OptionChoice `json:"values,omitempty"`

	// Min, Max and PricePerUnit are set for number options.
	Min          int             `json:"min,omitempty"`
	Max          int             `json:"max,omitempty"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
}

// OptionChoice is one declared value of a select option.
type OptionChoice struct {
	Value      OptionValue     `json:"value"`
	PriceDelta decimal.Decimal `json:"priceDelta"`
}

// Option returns the declared option with the given name.
func (p *Product) Option(name string) (ProductOption, bool) {
	for _, opt := range p.Options {
		if opt.Name == name {
			return opt, true
		}
	}
	return ProductOption{}, false
}
