package watch

import (
	"sync"

	model "auction-engine/internal/models"
)

// Registry is a concurrency-safe membership set of auction watchers. Pure
// fan-out bookkeeping: no bidding semantics.
type Registry struct {
	mu       sync.RWMutex
	watchers map[string]map[string]model.Watcher // auctionID -> userID -> watcher
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{watchers: make(map[string]map[string]model.Watcher)}
}

// Watch adds or replaces a user's subscription to an auction.
func (r *Registry) Watch(w model.Watcher) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.watchers[w.AuctionID] == nil {
		r.watchers[w.AuctionID] = make(map[string]model.Watcher)
	}
	r.watchers[w.AuctionID][w.UserID] = w
}

// Unwatch removes a user's subscription. Removing a non-watcher is a no-op.
func (r *Registry) Unwatch(auctionID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.watchers[auctionID]; ok {
		delete(set, userID)
		if len(set) == 0 {
			delete(r.watchers, auctionID)
		}
	}
}

// Watchers returns the auction's current watcher list.
func (r *Registry) Watchers(auctionID string) []model.Watcher {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.watchers[auctionID]
	out := make([]model.Watcher, 0, len(set))
	for _, w := range set {
		out = append(out, w)
	}
	return out
}

// IsWatching reports whether the user watches the auction.
func (r *Registry) IsWatching(auctionID, userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.watchers[auctionID][userID]
	return ok
}
