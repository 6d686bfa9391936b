package services

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"wastenot/internal/domain"
)

// Catalog is a read-only product lookup.
type Catalog interface {
	Product(id string) (domain.Product, bool)
	Products() []domain.Product
}

// StaticCatalog is an immutable in-memory product table.
type StaticCatalog struct {
	byID map[string]domain.Product
}

func NewStaticCatalog(products ...domain.Product) *StaticCatalog {
	c := &StaticCatalog{byID: make(map[string]domain.Product, len(products))}
	for _, p := range products {
		c.byID[p.ProductID] = p
	}
	return c
}

// DefaultCatalog holds the products the stores ship with.
func DefaultCatalog() *StaticCatalog {
	return NewStaticCatalog(
		domain.Product{ProductID: "prod_milk", Name: "Organic Milk", Category: "Dairy", TypicalShelfLifeDays: 7, Unit: "carton"},
		domain.Product{ProductID: "prod_bread", Name: "Whole Wheat Bread", Category: "Bakery", TypicalShelfLifeDays: 5, Unit: "loaf"},
		domain.Product{ProductID: "prod_apple", Name: "Apples", Category: "Produce", TypicalShelfLifeDays: 14, Unit: "kg"},
	)
}

type catalogFile struct {
	Products []domain.Product `yaml:"products"`
}

// LoadCatalog reads a YAML product list:
//
//	products:
//	  - productId: prod_milk
//	    name: Organic Milk
//	    category: Dairy
//	    typicalShelfLifeDays: 7
//	    unit: carton
func LoadCatalog(path string) (*StaticCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	for i, p := range f.Products {
		if p.ProductID == "" {
			return nil, fmt.Errorf("catalog %s: product %d has no productId", path, i)
		}
		if p.TypicalShelfLifeDays < 0 {
			return nil, fmt.Errorf("catalog %s: product %s has negative shelf life", path, p.ProductID)
		}
		if p.Unit == "" {
			f.Products[i].Unit = "items"
		}
	}
	return NewStaticCatalog(f.Products...), nil
}

func (c *StaticCatalog) Product(id string) (domain.Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Products returns the catalog sorted by product id.
func (c *StaticCatalog) Products() []domain.Product {
	out := make([]domain.Product, 0, len(c.byID))
	for _, p := range c.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// GetProduct is the lookup used by the core, with the NotFound contract.
func GetProduct(c Catalog, id string) (domain.Product, error) {
	p, ok := c.Product(id)
	if !ok {
		return domain.Product{}, domain.NotFound("product", id)
	}
	return p, nil
}
