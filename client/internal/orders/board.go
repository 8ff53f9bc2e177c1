package orders

import (
	"log"
	"sort"
	"sync"
	"time"

	"zestro/domain"
	"zestro/lifecycle"
)

// Board is the local copy of the orders an identity can see: its own orders
// (role-scoped, as returned by my-orders) and, for riders, the orders open for
// claiming. REST refreshes and pushed events both mutate it.
type Board struct {
	mu        sync.RWMutex
	mine      map[string]domain.Order
	available map[string]domain.Order
}

func NewBoard() *Board {
	return &Board{
		mine:      make(map[string]domain.Order),
		available: make(map[string]domain.Order),
	}
}

func newest(list map[string]domain.Order) []domain.Order {
	out := make([]domain.Order, 0, len(list))
	for _, o := range list {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Mine returns the identity's orders, newest first.
func (b *Board) Mine() []domain.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return newest(b.mine)
}

// Available returns the orders a rider may still claim.
func (b *Board) Available() []domain.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return lifecycle.Available(newest(b.available))
}

// Worklist is the restaurant dashboard: every order except delivered ones.
func (b *Board) Worklist() []domain.Order {
	return lifecycle.Worklist(b.Mine())
}

// Assigned returns the orders assigned to riderID.
func (b *Board) Assigned(riderID string) []domain.Order {
	return lifecycle.Mine(b.Mine(), riderID)
}

func (b *Board) Find(id string) (domain.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if o, ok := b.mine[id]; ok {
		return o, true
	}
	o, ok := b.available[id]
	return o, ok
}

// merge keeps whichever copy was written last.
func merge(current domain.Order, ok bool, incoming domain.Order) domain.Order {
	if !ok || !current.UpdatedAt.After(incoming.UpdatedAt) {
		if ok && current.Assigned() && incoming.RiderID != current.RiderID {
			incoming.RiderID = current.RiderID
		}
		return incoming
	}
	return current
}

// ReplaceMine swaps in a fresh my-orders result, keeping local copies that
// are newer than the fetched ones.
func (b *Board) ReplaceMine(list []domain.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mine = replace(b.mine, list)
}

func (b *Board) ReplaceAvailable(list []domain.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.available = replace(b.available, list)
}

func replace(old map[string]domain.Order, list []domain.Order) map[string]domain.Order {
	next := make(map[string]domain.Order, len(list))
	for _, o := range list {
		current, ok := old[o.ID]
		next[o.ID] = merge(current, ok, o)
	}
	return next
}

// Upsert stores o in mine, last write wins. A claimed order leaves the
// available list.
func (b *Board) Upsert(o domain.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	current, ok := b.mine[o.ID]
	o = merge(current, ok, o)
	b.mine[o.ID] = o
	if o.Assigned() {
		delete(b.available, o.ID)
	} else if a, ok := b.available[o.ID]; ok {
		b.available[o.ID] = merge(a, true, o)
	}
}

// InsertCreated adds a newly placed order to mine unless it is already known.
func (b *Board) InsertCreated(o domain.Order) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.mine[o.ID]; ok {
		return false
	}
	b.mine[o.ID] = o
	return true
}

// PatchStatus sets the status of a known order in every view, leaving the
// other fields alone. Applying the same patch twice changes nothing.
func (b *Board) PatchStatus(id string, status domain.Status, at time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	changed := false
	for _, list := range []map[string]domain.Order{b.mine, b.available} {
		o, ok := list[id]
		if !ok || o.Status == status {
			continue
		}
		o.Status = status
		if at.After(o.UpdatedAt) {
			o.UpdatedAt = at
		}
		list[id] = o
		changed = true
	}
	return changed
}

// ApplyAssignment folds an assignment change into the views. riderID empty
// means the order opened up for claiming. A local order that already has a
// rider is never handed to a different one.
func (b *Board) ApplyAssignment(o domain.Order, riderID, self string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	o.RiderID = riderID
	for _, list := range []map[string]domain.Order{b.mine, b.available} {
		if current, ok := list[o.ID]; ok && current.Assigned() && riderID != "" && current.RiderID != riderID {
			log.Printf("[orders] ignoring reassignment of order %s from %s to %s", o.ID, current.RiderID, riderID)
			return false
		}
	}

	if riderID == "" {
		if _, ok := b.available[o.ID]; ok || !lifecycle.Claimable(o.Status) {
			return false
		}
		if current, ok := b.mine[o.ID]; ok && current.Assigned() {
			return false
		}
		b.available[o.ID] = o
		return true
	}

	_, wasAvailable := b.available[o.ID]
	delete(b.available, o.ID)

	current, known := b.mine[o.ID]
	switch {
	case known:
		if current.RiderID == riderID {
			return wasAvailable
		}
		current.RiderID = riderID
		if o.UpdatedAt.After(current.UpdatedAt) {
			current.UpdatedAt = o.UpdatedAt
		}
		b.mine[o.ID] = current
	case riderID == self:
		b.mine[o.ID] = o
	default:
		return wasAvailable
	}
	return true
}
