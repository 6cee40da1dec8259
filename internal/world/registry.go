// Package world tracks which entities exist and who owns them.
//
// The authority assigns ids with Spawn; mirrors register the ids they learn
// about with Adopt. Despawn runs teardown hooks so anything scoped to an
// entity (subscriptions, caches) is released with it.
package world

import (
	"context"
	"errors"
	"sort"
	"sync"

	"cardtable/internal/domain"
)

var (
	ErrStale     = errors.New("entity is not live")
	ErrDuplicate = errors.New("entity id already live")
	ErrReserved  = errors.New("entity id is reserved")
)

// Entity is the identity record of a spawned entity.
type Entity struct {
	ID    domain.EntityID `json:"id"`
	Kind  domain.Kind     `json:"kind"`
	Owner string          `json:"owner"`
}

type waiter struct {
	match func(Entity) bool
	ch    chan Entity
}

// Registry holds live entities. It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	last     domain.EntityID
	live     map[domain.EntityID]Entity
	teardown map[domain.EntityID][]func()
	waiters  []*waiter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		live:     make(map[domain.EntityID]Entity),
		teardown: make(map[domain.EntityID][]func()),
	}
}

// Spawn assigns the next id and registers the entity with an immutable owner.
func (r *Registry) Spawn(kind domain.Kind, owner string) Entity {
	r.mu.Lock()
	r.last++
	e := Entity{ID: r.last, Kind: kind, Owner: owner}
	r.live[e.ID] = e
	ready := r.takeWaitersLocked(e)
	r.mu.Unlock()

	notifyWaiters(ready, e)
	return e
}

// Adopt registers an entity whose id was assigned elsewhere.
func (r *Registry) Adopt(e Entity) error {
	if e.ID == domain.TableEntity {
		return ErrReserved
	}
	r.mu.Lock()
	if _, ok := r.live[e.ID]; ok {
		r.mu.Unlock()
		return ErrDuplicate
	}
	r.live[e.ID] = e
	if e.ID > r.last {
		r.last = e.ID
	}
	ready := r.takeWaitersLocked(e)
	r.mu.Unlock()

	notifyWaiters(ready, e)
	return nil
}

// Despawn removes the entity and runs its teardown hooks, most recent first.
// Despawning an unknown id is a no-op and reports false.
func (r *Registry) Despawn(id domain.EntityID) bool {
	r.mu.Lock()
	if _, ok := r.live[id]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.live, id)
	hooks := r.teardown[id]
	delete(r.teardown, id)
	r.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
	return true
}

// OnTeardown registers fn to run when id is despawned.
// It reports false, without registering, when id is not live.
func (r *Registry) OnTeardown(id domain.EntityID, fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live[id]; !ok {
		return false
	}
	r.teardown[id] = append(r.teardown[id], fn)
	return true
}

// Get returns the live entity with the given id.
func (r *Registry) Get(id domain.EntityID) (Entity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.live[id]
	return e, ok
}

// OwnerOf returns the owner of a live entity.
func (r *Registry) OwnerOf(id domain.EntityID) (string, bool) {
	e, ok := r.Get(id)
	return e.Owner, ok
}

// IsOwnedBy reports whether id is live and owned by participant.
func (r *Registry) IsOwnedBy(id domain.EntityID, participant string) bool {
	e, ok := r.Get(id)
	return ok && participant != "" && e.Owner == participant
}

// Live returns the live entities of the given kind ordered by id.
// An empty kind returns every live entity.
func (r *Registry) Live(kind domain.Kind) []Entity {
	r.mu.Lock()
	out := make([]Entity, 0, len(r.live))
	for _, e := range r.live {
		if kind == "" || e.Kind == kind {
			out = append(out, e)
		}
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of live entities.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// WaitFor blocks until an entity satisfying match is live or ctx is done.
// A matching entity that is already live resolves immediately; otherwise the
// wait is resolved by the spawn or adopt that registers it.
func (r *Registry) WaitFor(ctx context.Context, match func(Entity) bool) (Entity, error) {
	r.mu.Lock()
	var found []Entity
	for _, e := range r.live {
		if match(e) {
			found = append(found, e)
		}
	}
	if len(found) > 0 {
		r.mu.Unlock()
		sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
		return found[0], nil
	}
	w := &waiter{match: match, ch: make(chan Entity, 1)}
	r.waiters = append(r.waiters, w)
	r.mu.Unlock()

	select {
	case e := <-w.ch:
		return e, nil
	case <-ctx.Done():
		r.dropWaiter(w)
		// The spawn may have raced the deadline.
		select {
		case e := <-w.ch:
			return e, nil
		default:
		}
		return Entity{}, ctx.Err()
	}
}

func (r *Registry) takeWaitersLocked(e Entity) []*waiter {
	if len(r.waiters) == 0 {
		return nil
	}
	var ready []*waiter
	kept := r.waiters[:0]
	for _, w := range r.waiters {
		if w.match(e) {
			ready = append(ready, w)
			continue
		}
		kept = append(kept, w)
	}
	for i := len(kept); i < len(r.waiters); i++ {
		r.waiters[i] = nil
	}
	r.waiters = kept
	return ready
}

func (r *Registry) dropWaiter(target *waiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, w := range r.waiters {
		if w == target {
			r.waiters = append(r.waiters[:i], r.waiters[i+1:]...)
			return
		}
	}
}

func notifyWaiters(ready []*waiter, e Entity) {
	for _, w := range ready {
		w.ch <- e
	}
}

// OwnedBy matches entities of kind owned by participant.
func OwnedBy(kind domain.Kind, participant string) func(Entity) bool {
	return func(e Entity) bool {
		return e.Kind == kind && e.Owner == participant
	}
}

// WithID matches exactly one id.
func WithID(id domain.EntityID) func(Entity) bool {
	return func(e Entity) bool { return e.ID == id }
}
