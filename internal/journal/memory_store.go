package journal

import (
	"context"
	"sort"
	"sync"

	"github.com/chrissnell/foilcast/internal/recommend"
	"github.com/chrissnell/foilcast/internal/strava"
	"github.com/chrissnell/foilcast/pkg/config"
)

// MemoryStore keeps the journal in process memory. It's used when no
// database is configured and nothing survives a restart.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[string][]Entry // newest first
	gear      map[string][]recommend.Gear
	locations map[string][]config.LocationData
	current   map[string]string
	tokens    map[string]strava.Token
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:   map[string][]Entry{},
		gear:      map[string][]recommend.Gear{},
		locations: map[string][]config.LocationData{},
		current:   map[string]string{},
		tokens:    map[string]strava.Token{},
	}
}

func (m *MemoryStore) List(_ context.Context, userID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Entry{}, m.entries[userID]...), nil
}

func (m *MemoryStore) ListForLocation(_ context.Context, userID, locationID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Entry{}
	for _, e := range m.entries[userID] {
		if e.LocationID == locationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryStore) Get(_ context.Context, userID, id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.find(userID, id)
	if i < 0 {
		return nil, ErrNotFound
	}
	e := m.entries[userID][i]
	return &e, nil
}

func (m *MemoryStore) Add(_ context.Context, userID string, e Entry) (*Entry, error) {
	prepareNew(&e)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insert(userID, e)
	return &e, nil
}

func (m *MemoryStore) Update(_ context.Context, userID string, e Entry) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.find(userID, e.ID)
	if i < 0 {
		return nil, ErrNotFound
	}
	m.remove(userID, i)
	m.insert(userID, e)
	return &e, nil
}

func (m *MemoryStore) EntryOwner(_ context.Context, id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for userID := range m.entries {
		if m.find(userID, id) >= 0 {
			return userID, nil
		}
	}
	return "", ErrNotFound
}

func (m *MemoryStore) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.find(userID, id)
	if i < 0 {
		return ErrNotFound
	}
	m.remove(userID, i)
	return nil
}

func (m *MemoryStore) UpsertByActivity(_ context.Context, userID string, e Entry) (*Entry, bool, error) {
	if e.StravaActivityID == nil {
		return nil, false, ErrNoActivity
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.entries[userID] {
		if existing.StravaActivityID != nil && *existing.StravaActivityID == *e.StravaActivityID {
			mergeActivity(&existing, e)
			m.entries[userID][i] = existing
			return &existing, false, nil
		}
	}

	prepareNew(&e)
	m.insert(userID, e)
	return &e, true, nil
}

func (m *MemoryStore) find(userID, id string) int {
	for i, e := range m.entries[userID] {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (m *MemoryStore) remove(userID string, i int) {
	list := m.entries[userID]
	m.entries[userID] = append(list[:i:i], list[i+1:]...)
}

// insert keeps the list sorted newest first
func (m *MemoryStore) insert(userID string, e Entry) {
	list := m.entries[userID]
	i := sort.Search(len(list), func(i int) bool { return !list[i].Date.After(e.Date) })
	list = append(list, Entry{})
	copy(list[i+1:], list[i:])
	list[i] = e
	m.entries[userID] = list
}

func (m *MemoryStore) GetGear(_ context.Context, userID string) ([]recommend.Gear, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]recommend.Gear{}, m.gear[userID]...), nil
}

func (m *MemoryStore) SaveGear(_ context.Context, userID string, gear []recommend.Gear) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gear[userID] = append([]recommend.Gear(nil), gear...)
	return nil
}

func (m *MemoryStore) GetLocations(_ context.Context, userID string) ([]config.LocationData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]config.LocationData{}, m.locations[userID]...), nil
}

func (m *MemoryStore) SaveLocations(_ context.Context, userID string, locations []config.LocationData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[userID] = append([]config.LocationData(nil), locations...)
	return nil
}

func (m *MemoryStore) GetCurrentLocation(_ context.Context, userID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current[userID], nil
}

func (m *MemoryStore) SaveCurrentLocation(_ context.Context, userID, locationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current[userID] = locationID
	return nil
}

func (m *MemoryStore) LoadStravaToken(_ context.Context, userID string) (*strava.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tokens[userID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *MemoryStore) SaveStravaToken(_ context.Context, userID string, token strava.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[userID] = token
	return nil
}

func (m *MemoryStore) StravaUsers(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.tokens))
	for id := range m.tokens {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
