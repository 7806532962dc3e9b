package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/maxg-dev/santiscl/internal/services"
)

// seedFile is the YAML layout accepted by the seed command.
type seedFile struct {
	Parents []seedParent `yaml:"parents"`
}

type seedParent struct {
	Name              string        `yaml:"name"`
	Description       string        `yaml:"description"`
	Category          string        `yaml:"category"`
	Highlighted       bool          `yaml:"highlighted"`
	AgeRecommendation string        `yaml:"ageRecommendation"`
	Variants          []seedVariant `yaml:"variants"`
}

type seedVariant struct {
	VariantName string            `yaml:"variantName"`
	Price       int64             `yaml:"price"`
	Stock       int               `yaml:"stock"`
	Images      []string          `yaml:"images"`
	Description string            `yaml:"description"`
	Dimensions  string            `yaml:"dimensions"`
	Attributes  map[string]string `yaml:"attributes"`
	IsDefault   bool              `yaml:"isDefault"`
}

func loadSeed(r io.Reader) (seedFile, error) {
	var seed seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return seedFile{}, errors.New("seed file is empty")
		}
		return seedFile{}, fmt.Errorf("parse seed file: %w", err)
	}
	if len(seed.Parents) == 0 {
		return seedFile{}, errors.New("seed file has no parents")
	}
	return seed, nil
}

// applySeed creates every parent followed by its variants. It stops at the first failure.
func applySeed(ctx context.Context, catalog services.CatalogService, out io.Writer, seed seedFile) error {
	var parents, variants int
	for _, p := range seed.Parents {
		parent, err := catalog.CreateParent(ctx, services.UpsertParentCommand{
			Name:              p.Name,
			Description:       p.Description,
			Category:          p.Category,
			Highlighted:       p.Highlighted,
			AgeRecommendation: p.AgeRecommendation,
			ActorID:           actorID,
		})
		if err != nil {
			return fmt.Errorf("create parent %q: %w", p.Name, err)
		}
		parents++
		for _, v := range p.Variants {
			if _, err := catalog.CreateVariant(ctx, services.UpsertVariantCommand{
				ParentID:    parent.ID,
				VariantName: v.VariantName,
				Price:       v.Price,
				Images:      v.Images,
				Description: v.Description,
				Dimensions:  v.Dimensions,
				Stock:       v.Stock,
				Attributes:  v.Attributes,
				IsDefault:   v.IsDefault,
				ActorID:     actorID,
			}); err != nil {
				return fmt.Errorf("create variant %q of %q: %w", v.VariantName, p.Name, err)
			}
			variants++
		}
	}
	fmt.Fprintf(out, "seeded %d parents and %d variants\n", parents, variants)
	return nil
}
