package menu

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/annetom/pizzaria-checkout/pkg/enums"
	"github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	MaxFlavors = 3
	NoBorder   = "sem_borda"
)

type Product struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Category    string           `json:"category,omitempty"`
	Ingredients []string         `json:"ingredients,omitempty"`
	PriceGrande decimal.Decimal  `json:"priceGrande"`
	PriceBroto  *decimal.Decimal `json:"priceBroto,omitempty"`
}

// PriceFor returns the product price for size. Broto is only offered when
// the menu carries a broto price.
func (p Product) PriceFor(size enums.PizzaSize) (decimal.Decimal, bool) {
	switch size {
	case enums.PizzaSizeGrande:
		return p.PriceGrande, true
	case enums.PizzaSizeBroto:
		if p.PriceBroto == nil {
			return decimal.Zero, false
		}
		return *p.PriceBroto, true
	}
	return decimal.Zero, false
}

// Option is a border or extra ingredient with its surcharge.
type Option struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type Catalog struct {
	Pizzas       []Product `json:"pizzas"`
	Borders      []Option  `json:"borders"`
	Extras       []Option  `json:"extras"`
	OpeningHours string    `json:"openingHours,omitempty"`

	products map[string]Product
	borders  map[string]Option
	extras   map[string]Option
}

func (c *Catalog) Product(id string) (Product, bool) {
	p, ok := c.products[id]
	return p, ok
}

// Selection is what the customer picked for one cart line.
type Selection struct {
	ProductID string
	Size      enums.PizzaSize
	FlavorIDs []string
	Border    string
	Extras    []string
}

// Priced is a selection resolved against the catalog.
type Priced struct {
	Name        string
	FlavorIDs   []string
	FlavorNames []string
	Border      string
	BorderName  string
	Extras      []string
	ExtraNames  []string
	UnitPrice   decimal.Decimal
}

// Price resolves sel. The unit price is the most expensive flavor for the
// size, plus the border surcharge, plus every extra. Flavor prices are never summed.
func (c *Catalog) Price(sel Selection) (Priced, error) {
	base, ok := c.Product(sel.ProductID)
	if !ok {
		return Priced{}, errors.New(errors.CodeNotFound, fmt.Sprintf("product %q not found", sel.ProductID))
	}
	if !sel.Size.IsValid() {
		return Priced{}, errors.New(errors.CodeValidation, "invalid pizza size")
	}

	flavorIDs := sel.FlavorIDs
	if len(flavorIDs) == 0 {
		flavorIDs = []string{base.ID}
	}
	if len(flavorIDs) > MaxFlavors {
		return Priced{}, errors.New(errors.CodeValidation, fmt.Sprintf("at most %d flavors per pizza", MaxFlavors))
	}

	priced := Priced{Name: base.Name}
	seen := make(map[string]struct{}, len(flavorIDs))
	for _, id := range flavorIDs {
		if _, dup := seen[id]; dup {
			return Priced{}, errors.New(errors.CodeValidation, "flavors must be unique")
		}
		seen[id] = struct{}{}

		flavor, ok := c.Product(id)
		if !ok {
			return Priced{}, errors.New(errors.CodeNotFound, fmt.Sprintf("flavor %q not found", id))
		}
		price, ok := flavor.PriceFor(sel.Size)
		if !ok {
			return Priced{}, errors.New(errors.CodeValidation, fmt.Sprintf("%s is not offered in size %s", flavor.Name, sel.Size))
		}
		if price.GreaterThan(priced.UnitPrice) {
			priced.UnitPrice = price
		}
		priced.FlavorIDs = append(priced.FlavorIDs, flavor.ID)
		priced.FlavorNames = append(priced.FlavorNames, flavor.Name)
	}

	if border := strings.TrimSpace(sel.Border); border != "" && border != NoBorder {
		opt, ok := c.borders[border]
		if !ok {
			return Priced{}, errors.New(errors.CodeNotFound, fmt.Sprintf("border %q not found", border))
		}
		priced.Border = opt.ID
		priced.BorderName = opt.Name
		priced.UnitPrice = priced.UnitPrice.Add(opt.Price)
	}

	for _, id := range sel.Extras {
		opt, ok := c.extras[id]
		if !ok {
			return Priced{}, errors.New(errors.CodeNotFound, fmt.Sprintf("extra %q not found", id))
		}
		priced.Extras = append(priced.Extras, opt.ID)
		priced.ExtraNames = append(priced.ExtraNames, opt.Name)
		priced.UnitPrice = priced.UnitPrice.Add(opt.Price)
	}

	return priced, nil
}

// ParseCatalog normalizes the backend menu. It accepts a bare product array
// or an object with pizzas/items/products plus bordas and extras.
func ParseCatalog(raw []byte) (*Catalog, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "decode menu")
	}

	cat := &Catalog{}
	switch v := payload.(type) {
	case []any:
		cat.Pizzas = parseProducts(v)
	case map[string]any:
		root := v
		if data, ok := v["data"].(map[string]any); ok {
			root = data
		}
		for _, key := range []string{"pizzas", "items", "products", "cardapio"} {
			if list, ok := root[key].([]any); ok {
				cat.Pizzas = parseProducts(list)
				break
			}
		}
		if list, ok := root["bordas"].([]any); ok {
			cat.Borders = parseOptions(list)
		}
		if list, ok := root["extras"].([]any); ok {
			cat.Extras = parseOptions(list)
		}
		cat.OpeningHours = firstString(root, "horarioAbertura", "openingHours")
	default:
		return nil, errors.New(errors.CodeDependency, "unexpected menu payload")
	}

	cat.index()
	return cat, nil
}

func (c *Catalog) index() {
	c.products = make(map[string]Product, len(c.Pizzas))
	for _, p := range c.Pizzas {
		c.products[p.ID] = p
	}
	c.borders = make(map[string]Option, len(c.Borders))
	for _, o := range c.Borders {
		c.borders[o.ID] = o
	}
	c.extras = make(map[string]Option, len(c.Extras))
	for _, o := range c.Extras {
		c.extras[o.ID] = o
	}
}

func parseProducts(list []any) []Product {
	out := make([]Product, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := firstString(m, "id", "_id")
		if id == "" {
			continue
		}
		p := Product{
			ID:          id,
			Name:        firstString(m, "nome", "name"),
			Description: firstString(m, "descricao", "description"),
			Category:    firstString(m, "categoria", "category"),
			Ingredients: stringList(firstValue(m, "ingredientes", "ingredients", "composicao")),
		}
		if price, ok := firstDecimal(m, "preco_grande", "priceGrande", "preco", "price", "valor"); ok {
			p.PriceGrande = price
		}
		if price, ok := firstDecimal(m, "preco_broto", "priceBroto"); ok {
			p.PriceBroto = &price
		}
		out = append(out, p)
	}
	return out
}

func parseOptions(list []any) []Option {
	out := make([]Option, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := firstString(m, "id", "_id")
		if id == "" {
			continue
		}
		price, _ := firstDecimal(m, "preco", "price", "valor")
		out = append(out, Option{ID: id, Name: firstString(m, "nome", "name"), Price: price})
	}
	return out
}

func firstValue(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func firstDecimal(m map[string]any, keys ...string) (decimal.Decimal, bool) {
	for _, key := range keys {
		switch v := m[key].(type) {
		case json.Number:
			if d, err := decimal.NewFromString(v.String()); err == nil {
				return d, true
			}
		case string:
			if d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(v), ",", ".")); err == nil {
				return d, true
			}
		}
	}
	return decimal.Zero, false
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
