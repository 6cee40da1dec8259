package replica

import (
	"sync/atomic"

	"cardtable/internal/domain"
)

// Subscription is a registered listener. Entity-scoped subscriptions are
// released automatically when their entity despawns.
type Subscription struct {
	store    *Store
	id       uint64
	entity   domain.EntityID
	all      bool
	fn       Listener
	released atomic.Bool
}

// Release stops delivery. It is safe to call more than once.
func (sub *Subscription) Release() {
	if sub == nil || !sub.released.CompareAndSwap(false, true) {
		return
	}
	s := sub.store
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for i, other := range s.subs {
		if other == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// Released reports whether the subscription no longer receives changes.
func (sub *Subscription) Released() bool {
	return sub.released.Load()
}

// Subscribe delivers every change to entity id, including its despawn.
// The table entity can always be subscribed to.
func (s *Store) Subscribe(id domain.EntityID, fn Listener) (*Subscription, error) {
	sub := s.addSub(&Subscription{entity: id, fn: fn})
	if id == domain.TableEntity {
		return sub, nil
	}
	if !s.reg.OnTeardown(id, sub.Release) {
		sub.Release()
		return nil, ErrUnknownEntity
	}
	return sub, nil
}

// SubscribeAll delivers every change applied to the store.
func (s *Store) SubscribeAll(fn Listener) *Subscription {
	return s.addSub(&Subscription{all: true, fn: fn})
}

func (s *Store) addSub(sub *Subscription) *Subscription {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	sub.id = s.nextSub
	sub.store = s
	s.subs = append(s.subs, sub)
	return sub
}

// dispatch runs outside s.mu so listeners may read the store.
func (s *Store) dispatch(changes []Change) {
	for _, c := range changes {
		s.subMu.Lock()
		targets := make([]*Subscription, 0, len(s.subs))
		for _, sub := range s.subs {
			if sub.all || sub.entity == c.Entity || c.Op == OpReset {
				targets = append(targets, sub)
			}
		}
		s.subMu.Unlock()

		for _, sub := range targets {
			if !sub.Released() {
				sub.fn(c)
			}
		}
		if c.Op == OpDespawn {
			s.reg.Despawn(c.Entity)
		}
	}
}
