package cart

import (
	"time"

	"github.com/dmarinho/campus-eats/internal/domain"
)

// MaxQuantity is the hard per-item cap. Adds at the cap are no-ops and
// SetQuantity above it is rejected.
const MaxQuantity = 10

// DefaultAddWindow coalesces rapid repeated adds of the same item into one
// logical add. This guards against duplicate submits from repeated user
// input, not a correctness requirement of the domain.
const DefaultAddWindow = 500 * time.Millisecond

// Entry is one cart line. Name and UnitPrice are carried for display and
// total computation; the order service re-resolves prices at creation time
// and never trusts these.
type Entry struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// Cart is the in-progress selection before an order exists. It is not safe
// for concurrent use; the session service serializes access per session.
type Cart struct {
	items     []Entry
	lastAdd   map[string]time.Time
	addWindow time.Duration
	now       func() time.Time
}

func New() *Cart {
	return &Cart{
		lastAdd:   make(map[string]time.Time),
		addWindow: DefaultAddWindow,
		now:       time.Now,
	}
}

// normalize collapses the entry list to at most one entry per item identity,
// summing quantities and clamping to the cap. Run before every mutation so a
// duplicate slipped in upstream (e.g. through a corrupt mirror) never
// survives past the next operation.
func (c *Cart) normalize() {
	if len(c.items) < 2 {
		return
	}

	seen := make(map[string]int, len(c.items))
	merged := c.items[:0]
	for _, entry := range c.items {
		if idx, ok := seen[entry.ItemID]; ok {
			q := merged[idx].Quantity + entry.Quantity
			if q > MaxQuantity {
				q = MaxQuantity
			}
			merged[idx].Quantity = q
			continue
		}
		seen[entry.ItemID] = len(merged)
		merged = append(merged, entry)
	}
	c.items = merged
}

// Add puts one unit of item into the cart, incrementing an existing entry up
// to the cap. Unavailable items are rejected with ErrUnavailable and the
// cart is left untouched. Returns ErrQuantityCap when the entry is already
// at the cap.
func (c *Cart) Add(item *domain.MenuItem) error {
	if item == nil || item.ID == "" {
		return domain.ErrInvalidInput
	}
	if !item.Available {
		return domain.ErrUnavailable
	}

	now := c.now()
	if last, ok := c.lastAdd[item.ID]; ok && now.Sub(last) < c.addWindow {
		// Coalesced duplicate submit.
		return nil
	}
	c.lastAdd[item.ID] = now

	c.normalize()

	for i := range c.items {
		if c.items[i].ItemID != item.ID {
			continue
		}
		if c.items[i].Quantity >= MaxQuantity {
			return domain.ErrQuantityCap
		}
		c.items[i].Quantity++
		return nil
	}

	c.items = append(c.items, Entry{
		ItemID:    item.ID,
		Name:      item.Name,
		UnitPrice: item.Price,
		Quantity:  1,
	})
	return nil
}

// Remove deletes the entry for itemID; no-op when absent.
func (c *Cart) Remove(itemID string) {
	c.normalize()
	for i := range c.items {
		if c.items[i].ItemID == itemID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// SetQuantity replaces the quantity for itemID. A quantity below 1 behaves
// as Remove; above the cap is rejected leaving the entry unchanged.
func (c *Cart) SetQuantity(itemID string, q int) error {
	if q < 1 {
		c.Remove(itemID)
		return nil
	}
	if q > MaxQuantity {
		return domain.ErrQuantityCap
	}

	c.normalize()
	for i := range c.items {
		if c.items[i].ItemID == itemID {
			c.items[i].Quantity = q
			return nil
		}
	}
	return domain.ErrItemNotFound
}

func (c *Cart) Clear() {
	c.items = nil
	c.lastAdd = make(map[string]time.Time)
}

func (c *Cart) Total() int64 {
	var total int64
	for _, entry := range c.items {
		total += entry.UnitPrice * int64(entry.Quantity)
	}
	return total
}

func (c *Cart) ItemCount() int {
	var count int
	for _, entry := range c.items {
		count += entry.Quantity
	}
	return count
}

// Entries returns the current lines in insertion order.
func (c *Cart) Entries() []Entry {
	c.normalize()
	out := make([]Entry, len(c.items))
	copy(out, c.items)
	return out
}

// Restore replaces the cart contents from a stored snapshot, collapsing any
// duplicates it may carry.
func (c *Cart) Restore(entries []Entry) {
	c.items = make([]Entry, len(entries))
	copy(c.items, entries)
	c.normalize()
	for i := range c.items {
		if c.items[i].Quantity < 1 {
			c.items[i].Quantity = 1
		}
	}
}
