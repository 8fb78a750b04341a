package ucp

import (
	"strings"
	"sync"
)

// Product is a catalog entry. Inventory tracks remaining stock; a
// negative value means unlimited.
type Product struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"` // cents
	ImageURL    string `json:"image_url,omitempty"`
	Inventory   int    `json:"inventory,omitempty"`
}

// Catalog is the product lookup the store resolves line items against.
// The real search index is an external collaborator; implementations
// only need cheap point lookups and a naive search.
type Catalog interface {
	Get(id string) (Product, bool)
	Search(query string) []Product
	InStock(id string, quantity int) bool
}

// InMemoryCatalog is a fixed product table for demos and tests.
type InMemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]Product
	order    []string
}

// NewInMemoryCatalog builds a catalog from the given products.
func NewInMemoryCatalog(products ...Product) *InMemoryCatalog {
	c := &InMemoryCatalog{products: make(map[string]Product, len(products))}
	for _, p := range products {
		if _, exists := c.products[p.ID]; !exists {
			c.order = append(c.order, p.ID)
		}
		c.products[p.ID] = p
	}
	return c
}

func (c *InMemoryCatalog) Get(id string) (Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	return p, ok
}

// Search matches the query against titles and descriptions,
// case-insensitive substring. An empty query returns everything.
func (c *InMemoryCatalog) Search(query string) []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var out []Product
	for _, id := range c.order {
		p := c.products[id]
		if q == "" ||
			strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
		}
	}
	return out
}

func (c *InMemoryCatalog) InStock(id string, quantity int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return false
	}
	return p.Inventory < 0 || p.Inventory >= quantity
}

// DemoCatalog returns the sample catalog used by the demo server.
func DemoCatalog() *InMemoryCatalog {
	return NewInMemoryCatalog(
		Product{ID: "prod_mug", Title: "Stoneware Mug", Description: "12oz ceramic mug", Price: 1800, Inventory: 40},
		Product{ID: "prod_tee", Title: "Logo T-Shirt", Description: "Organic cotton tee", Price: 2500, Inventory: 120},
		Product{ID: "prod_hoodie", Title: "Zip Hoodie", Description: "Heavyweight fleece hoodie", Price: 6400, Inventory: 25},
		Product{ID: "prod_stickers", Title: "Sticker Pack", Description: "Assorted vinyl stickers", Price: 500, Inventory: -1},
		Product{ID: "prod_poster", Title: "Art Print", Description: "A2 matte art print", Price: 3200, Inventory: 8},
	)
}

var _ Catalog = (*InMemoryCatalog)(nil)
