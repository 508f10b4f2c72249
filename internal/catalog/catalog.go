// Package catalog imports product definitions from gzipped JSON-lines files.
//
// Each non-blank line of a catalogue file is one product:
//
//	{"id":"logo","name":"Logo Design","basePrice":"50.00","options":[...]}
//
// Products are active unless the line sets "isActive": false.
package catalog

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

// Loader reads the products of one catalogue file.
type Loader interface {
	Load(ctx context.Context, path string) ([]model.Product, error)
}

// productRecord is the on-disk form of a product.
type productRecord struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Image     string                `json:"image"`
	Category  string                `json:"category"`
	BasePrice decimal.Decimal       `json:"basePrice"`
	Options   []model.ProductOption `json:"options"`
	IsActive  *bool                 `json:"isActive"`
}

func (rec productRecord) product() model.Product {
	active := true
	if rec.IsActive != nil {
		active = *rec.IsActive
	}
	return model.Product{
		ID:        strings.TrimSpace(rec.ID),
		Name:      rec.Name,
		Image:     rec.Image,
		Category:  rec.Category,
		BasePrice: rec.BasePrice,
		Options:   rec.Options,
		IsActive:  active,
	}
}

// decode reads a gzipped JSON-lines stream of products.
func decode(ctx context.Context, r io.Reader) ([]model.Product, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	scanner := bufio.NewScanner(gzipReader)
	// Products with many options can exceed the default token size.
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var products []model.Product
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec productRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		p := rec.product()
		if err := Validate(p); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		products = append(products, p)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalogue: %w", err)
	}

	return products, nil
}

// Validate checks that a product definition can be priced.
func Validate(p model.Product) error {
	if p.ID == "" {
		return fmt.Errorf("product id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product %s: name is required", p.ID)
	}
	if p.BasePrice.IsNegative() {
		return fmt.Errorf("product %s: base price cannot be negative", p.ID)
	}

	seen := make(map[string]bool, len(p.Options))
	for _, opt := range p.Options {
		if opt.Name == "" {
			return fmt.Errorf("product %s: option name is required", p.ID)
		}
		if seen[opt.Name] {
			return fmt.Errorf("product %s: duplicate option %q", p.ID, opt.Name)
		}
		seen[opt.Name] = true

		switch opt.Type {
		case model.OptionSelect:
			if len(opt.Values) == 0 {
				return fmt.Errorf("product %s: select option %q has no values", p.ID, opt.Name)
			}
			values := make(map[model.OptionValue]bool, len(opt.Values))
			for _, v := range opt.Values {
				if values[v.Value] {
					return fmt.Errorf("product %s: option %q repeats value %q", p.ID, opt.Name, v.Value)
				}
				values[v.Value] = true
			}
		case model.OptionNumber:
			if opt.Min > opt.Max {
				return fmt.Errorf("product %s: option %q has min greater than max", p.ID, opt.Name)
			}
		default:
			return fmt.Errorf("product %s: option %q has unknown type %q", p.ID, opt.Name, opt.Type)
		}
	}

	return nil
}
