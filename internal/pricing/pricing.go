// Package pricing computes cart unit prices from catalogue definitions.
package pricing

import (
	"fmt"
	"strconv"

	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

// DefaultTolerance is the largest accepted difference between a client
// supplied unit price and the resolved one.
var DefaultTolerance = decimal.RequireFromString("0.005")

// Resolve returns the unit price of product configured with selected.
//
// The price is the base price plus the delta of every selected select-option
// value plus pricePerUnit*n for every selected number option. Options that are
// declared but not selected add nothing.
func Resolve(product model.Product, selected model.Options) (decimal.Decimal, error) {
	price := product.BasePrice

	for name, value := range selected {
		opt, ok := product.Option(name)
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: %q is not an option of product %s", model.ErrInvalidOption, name, product.ID)
		}

		switch opt.Type {
		case model.OptionSelect:
			delta, err := selectDelta(opt, value)
			if err != nil {
				return decimal.Zero, err
			}
			price = price.Add(delta)

		case model.OptionNumber:
			n, err := numberQuantity(opt, value)
			if err != nil {
				return decimal.Zero, err
			}
			price = price.Add(opt.PricePerUnit.Mul(decimal.NewFromInt(int64(n))))

		default:
			return decimal.Zero, fmt.Errorf("%w: option %q has unsupported type %q", model.ErrInvalidOption, name, opt.Type)
		}
	}

	return price, nil
}

// Verify rejects a claimed unit price that differs from the resolved price by
// more than tolerance. The resolved price is always the one to store.
func Verify(claimed, resolved, tolerance decimal.Decimal) error {
	if claimed.Sub(resolved).Abs().GreaterThan(tolerance) {
		return fmt.Errorf("%w: got %s, expected %s", model.ErrPriceMismatch, claimed.String(), resolved.String())
	}
	return nil
}

func selectDelta(opt model.ProductOption, value model.OptionValue) (decimal.Decimal, error) {
	for _, choice := range opt.Values {
		if choice.Value == value {
			return choice.PriceDelta, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %q is not a value of option %q", model.ErrInvalidOption, value, opt.Name)
}

func numberQuantity(opt model.ProductOption, value model.OptionValue) (int, error) {
	n, err := strconv.Atoi(string(value))
	if err != nil {
		return 0, fmt.Errorf("%w: option %q needs a whole number, got %q", model.ErrInvalidOption, opt.Name, value)
	}
	if n < opt.Min || n > opt.Max {
		return 0, fmt.Errorf("%w: option %q must be between %d and %d, got %d", model.ErrInvalidOption, opt.Name, opt.Min, opt.Max, n)
	}
	return n, nil
}
