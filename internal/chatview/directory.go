package chatview

import (
	"context"
	"fmt"
	"sync"

	"github.com/chatzone/chatzone/internal/models"
	"github.com/chatzone/chatzone/internal/realtime"
	"github.com/google/uuid"
)

// Directory is the contact list: every known user except the viewer,
// in arrival order, updated in place by users UPDATE events.
type Directory struct {
	mu     sync.RWMutex
	selfID uuid.UUID
	users  []models.User
	index  map[uuid.UUID]int
}

func NewDirectory(selfID uuid.UUID) *Directory {
	return &Directory{
		selfID: selfID,
		index:  make(map[uuid.UUID]int),
	}
}

// Load seeds the directory from one bulk read, replacing any previous
// state. The server already excludes the caller; the filter here keeps
// the invariant even against a misbehaving backend. An empty result is
// fine; a fresh deployment has no contacts yet.
func (d *Directory) Load(ctx context.Context, lister UserLister) error {
	fetched, err := lister.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("load directory: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.users = d.users[:0]
	d.index = make(map[uuid.UUID]int, len(fetched))
	for _, u := range fetched {
		if u.ID == d.selfID {
			continue
		}
		d.index[u.ID] = len(d.users)
		d.users = append(d.users, u)
	}
	return nil
}

// Apply merges a users UPDATE event into the matching entry field-wise:
// fields absent from the payload are retained, present ones overwrite.
// Events for the viewer are skipped, events for unknown users are
// ignored (an update never inserts), and nothing is ever removed.
// Returns true if an entry changed.
func (d *Directory) Apply(ev realtime.Event) bool {
	if ev.Table != realtime.TableUsers || ev.Kind != realtime.KindUpdate || ev.User == nil {
		return false
	}
	patch := ev.User
	if patch.ID == d.selfID {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	i, ok := d.index[patch.ID]
	if !ok {
		return false
	}

	u := &d.users[i]
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.AvatarURL != nil {
		u.AvatarURL = *patch.AvatarURL
	}
	if patch.IsOnline != nil {
		u.IsOnline = *patch.IsOnline
	}
	return true
}

// Users returns a copy of the directory in arrival order.
func (d *Directory) Users() []models.User {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]models.User, len(d.users))
	copy(out, d.users)
	return out
}

// Get returns one entry by ID.
func (d *Directory) Get(id uuid.UUID) (models.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	i, ok := d.index[id]
	if !ok {
		return models.User{}, false
	}
	return d.users[i], true
}
