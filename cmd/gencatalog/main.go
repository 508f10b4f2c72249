package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"storefront/internal/catalog"
	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

// gencatalog writes a sample catalogue for local development:
//
//	data/catalog/products.jsonl.gz  design services with options
//	data/catalog/print.jsonl.gz     print products, one retired
//
// Import them with CATALOG_FILES=data/catalog/products.jsonl.gz,data/catalog/print.jsonl.gz
func main() {
	dataDir := "data/catalog"

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	files := map[string][]model.Product{
		"products.jsonl.gz": {
			{
				ID:        "logo",
				Name:      "Logo Design",
				Image:     "/images/logo.png",
				Category:  "design",
				BasePrice: decimal.RequireFromString("50.00"),
				IsActive:  true,
				Options: []model.ProductOption{
					{
						Name: "size",
						Type: model.OptionSelect,
						Values: []model.OptionChoice{
							{Value: "small", PriceDelta: decimal.Zero},
							{Value: "large", PriceDelta: decimal.RequireFromString("12.50")},
						},
					},
					{Name: "revisions", Type: model.OptionNumber, Min: 0, Max: 5, PricePerUnit: decimal.RequireFromString("7.25")},
				},
			},
			{
				ID:        "banner",
				Name:      "Web Banner",
				Image:     "/images/banner.png",
				Category:  "design",
				BasePrice: decimal.RequireFromString("35.00"),
				IsActive:  true,
				Options: []model.ProductOption{
					{
						Name: "format",
						Type: model.OptionSelect,
						Values: []model.OptionChoice{
							{Value: "png", PriceDelta: decimal.Zero},
							{Value: "svg", PriceDelta: decimal.RequireFromString("5.00")},
						},
					},
				},
			},
		},
		"print.jsonl.gz": {
			{ID: "card", Name: "Business Card", Category: "print", BasePrice: decimal.RequireFromString("5.00"), IsActive: true},
			{ID: "flyer", Name: "Flyer", Category: "print", BasePrice: decimal.RequireFromString("2.40"), IsActive: false},
		},
	}

	for filename, products := range files {
		filePath := filepath.Join(dataDir, filename)

		if err := createCatalogFile(filePath, products); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}

		fmt.Printf("Created %s with %d products\n", filePath, len(products))
	}

	fmt.Println("\nSample catalogue files created successfully!")
}

func createCatalogFile(filePath string, products []model.Product) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	encoder := json.NewEncoder(gzipWriter)
	for _, p := range products {
		if err := catalog.Validate(p); err != nil {
			return err
		}
		if err := encoder.Encode(p); err != nil {
			return fmt.Errorf("failed to write product %s: %w", p.ID, err)
		}
	}

	return nil
}
