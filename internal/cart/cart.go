package cart

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/annetom/pizzaria-checkout/internal/menu"
	"github.com/annetom/pizzaria-checkout/pkg/enums"
	"github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/annetom/pizzaria-checkout/pkg/storage"
	"github.com/shopspring/decimal"
)

// Item is one cart line. JSON names match the persisted cart_items layout.
type Item struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"idPizza,omitempty"`
	Name        string          `json:"nome"`
	Size        enums.PizzaSize `json:"tamanho"`
	Quantity    int             `json:"quantidade"`
	UnitPrice   decimal.Decimal `json:"precoUnitario"`
	FlavorIDs   []string        `json:"saboresIds,omitempty"`
	FlavorNames []string        `json:"saboresNomes,omitempty"`
	Border      string          `json:"borda,omitempty"`
	BorderName  string          `json:"bordaNome,omitempty"`
	Extras      []string        `json:"extras,omitempty"`
	ExtraIDs    []string        `json:"extrasIds,omitempty"`
	Note        string          `json:"obs,omitempty"`
}

func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i Item) matches(id string, size enums.PizzaSize) bool {
	return i.ID == id && i.Size == size
}

func (i Item) validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return errors.New(errors.CodeValidation, "item id is required")
	}
	if !i.Size.IsValid() {
		return errors.New(errors.CodeValidation, "invalid pizza size")
	}
	if i.Quantity <= 0 {
		return errors.New(errors.CodeValidation, "quantity must be positive")
	}
	if i.UnitPrice.IsNegative() {
		return errors.New(errors.CodeValidation, "unit price must be non-negative")
	}
	if len(i.FlavorIDs) > menu.MaxFlavors {
		return errors.New(errors.CodeValidation, "too many flavors")
	}
	return nil
}

// LineID identifies a pizza configuration. Pizzas that differ in size,
// flavors, border, extras or note get different ids, so they never share a
// line or a unit price. Flavor and extra order does not matter.
func LineID(productID string, size enums.PizzaSize, flavorIDs []string, border string, extraIDs []string, note string) string {
	flavors := slices.Sorted(slices.Values(flavorIDs))
	extras := slices.Sorted(slices.Values(extraIDs))
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%s\x00%s",
		productID, size, strings.Join(flavors, ","), border, strings.Join(extras, ","), strings.TrimSpace(note))
	return productID + "-" + hex.EncodeToString(h.Sum(nil))[:12]
}

// FromPriced builds a cart line from a catalog-priced selection.
func FromPriced(sel menu.Selection, priced menu.Priced, quantity int, note string) Item {
	note = strings.TrimSpace(note)
	return Item{
		ID:          LineID(sel.ProductID, sel.Size, priced.FlavorIDs, priced.Border, priced.Extras, note),
		ProductID:   sel.ProductID,
		Name:        priced.Name,
		Size:        sel.Size,
		Quantity:    quantity,
		UnitPrice:   priced.UnitPrice,
		FlavorIDs:   priced.FlavorIDs,
		FlavorNames: priced.FlavorNames,
		Border:      priced.Border,
		BorderName:  priced.BorderName,
		Extras:      priced.ExtraNames,
		ExtraIDs:    priced.Extras,
		Note:        note,
	}
}

// Cart holds the lines of one checkout session and writes them to
// cart_items after every mutation. A failed write leaves the cart unchanged.
type Cart struct {
	store storage.Store

	mu    sync.Mutex
	items []Item
}

// Load reads the persisted cart. A missing or unreadable entry yields an empty cart.
func Load(ctx context.Context, store storage.Store) (*Cart, error) {
	if store == nil {
		return nil, errors.New(errors.CodeInternal, "cart store is required")
	}
	c := &Cart{store: store}
	var items []Item
	found, err := storage.GetJSON(ctx, store, storage.KeyCartItems, &items)
	if err != nil && !stderrors.Is(err, storage.ErrDecode) {
		return nil, errors.Wrap(errors.CodeDependency, err, "load cart")
	}
	if found {
		for _, item := range items {
			if item.validate() == nil {
				c.items = append(c.items, item)
			}
		}
	}
	return c, nil
}

func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneItems(c.items)
}

func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) == 0
}

// ItemCount is the sum of line quantities.
func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, item := range c.items {
		count += item.Quantity
	}
	return count
}

// Total is the sum of unitPrice * quantity over all lines.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Add appends item or merges its quantity into the line with the same id.
// Line ids encode the full configuration, so only identical pizzas merge.
func (c *Cart) Add(ctx context.Context, item Item) error {
	if err := item.validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	next := cloneItems(c.items)
	merged := false
	for i := range next {
		if next[i].matches(item.ID, item.Size) {
			next[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		next = append(next, item)
	}
	return c.commitLocked(ctx, next)
}

// Update sets the quantity of a line. Zero or less removes it.
func (c *Cart) Update(ctx context.Context, id string, size enums.PizzaSize, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexLocked(id, size)
	if idx < 0 {
		return errors.New(errors.CodeNotFound, "cart item not found")
	}
	next := cloneItems(c.items)
	if quantity <= 0 {
		next = append(next[:idx], next[idx+1:]...)
	} else {
		next[idx].Quantity = quantity
	}
	return c.commitLocked(ctx, next)
}

// Remove drops the (id, size) line. Removing a missing line is not an error.
func (c *Cart) Remove(ctx context.Context, id string, size enums.PizzaSize) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexLocked(id, size)
	if idx < 0 {
		return nil
	}
	next := cloneItems(c.items)
	next = append(next[:idx], next[idx+1:]...)
	return c.commitLocked(ctx, next)
}

// Replace swaps the (id, size) line for item, appending when absent.
func (c *Cart) Replace(ctx context.Context, item Item) error {
	if err := item.validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	next := cloneItems(c.items)
	if idx := c.indexLocked(item.ID, item.Size); idx >= 0 {
		next[idx] = item
	} else {
		next = append(next, item)
	}
	return c.commitLocked(ctx, next)
}

func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commitLocked(ctx, nil)
}

// Fingerprint identifies the cart contents. Equal carts share a fingerprint.
func (c *Cart) Fingerprint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := sha256.New()
	for _, item := range c.items {
		fmt.Fprintf(h, "%s|%s|%d|%s|%s|%s|%s;", item.ID, item.Size, item.Quantity, item.UnitPrice.String(),
			strings.Join(item.FlavorIDs, ","), item.Border, strings.Join(item.Extras, ","))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func (c *Cart) indexLocked(id string, size enums.PizzaSize) int {
	for i, item := range c.items {
		if item.matches(id, size) {
			return i
		}
	}
	return -1
}

func (c *Cart) commitLocked(ctx context.Context, next []Item) error {
	if next == nil {
		next = []Item{}
	}
	if err := storage.SetJSON(ctx, c.store, storage.KeyCartItems, next); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "persist cart")
	}
	c.items = next
	return nil
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
