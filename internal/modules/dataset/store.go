// README: Dataset store; holds the loaded record sets as an atomically replaced snapshot.
package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"ridescore/internal/types"
)

// Snapshot is one fully loaded, read-only generation of the three record sets.
type Snapshot struct {
	History  []Ride
	Users    []User
	Rides    []Ride
	LoadedAt time.Time

	userIndex    map[types.ID]int
	rideIndex    map[types.ID]int
	historyIndex map[types.ID]int
}

// Skipped describes a row that could not be turned into a record.
type Skipped struct {
	Kind Kind
	Row  int
	Err  error
}

// NewSnapshot builds typed records from parsed rows. Rows without an id and
// rows repeating an id already seen in the same set are skipped and reported.
func NewSnapshot(history, users, rides []Record) (*Snapshot, []Skipped) {
	s := &Snapshot{
		LoadedAt:     time.Now(),
		userIndex:    make(map[types.ID]int, len(users)),
		rideIndex:    make(map[types.ID]int, len(rides)),
		historyIndex: make(map[types.ID]int, len(history)),
	}
	var skipped []Skipped

	for i, rec := range users {
		u, err := NewUser(rec)
		if err == nil {
			if _, dup := s.userIndex[u.ID]; dup {
				err = fmt.Errorf("duplicate user id %s", u.ID)
			}
		}
		if err != nil {
			skipped = append(skipped, Skipped{Kind: KindUsers, Row: i + 1, Err: err})
			continue
		}
		s.userIndex[u.ID] = len(s.Users)
		s.Users = append(s.Users, u)
	}
	s.Rides, skipped = appendRides(s.Rides, s.rideIndex, rides, KindRides, skipped)
	s.History, skipped = appendRides(s.History, s.historyIndex, history, KindHistory, skipped)
	return s, skipped
}

func appendRides(dst []Ride, index map[types.ID]int, rows []Record, kind Kind, skipped []Skipped) ([]Ride, []Skipped) {
	for i, rec := range rows {
		r, err := NewRide(rec)
		if err == nil {
			if _, dup := index[r.ID]; dup {
				err = fmt.Errorf("duplicate ride id %s", r.ID)
			}
		}
		if err != nil {
			skipped = append(skipped, Skipped{Kind: kind, Row: i + 1, Err: err})
			continue
		}
		index[r.ID] = len(dst)
		dst = append(dst, r)
	}
	return dst, skipped
}

func (s *Snapshot) User(id types.ID) (User, error) {
	if i, ok := s.userIndex[id]; ok {
		return s.Users[i], nil
	}
	return User{}, types.NotFound("user", id)
}

// Ride resolves an id against the available rides first, then history.
func (s *Snapshot) Ride(id types.ID) (Ride, error) {
	if i, ok := s.rideIndex[id]; ok {
		return s.Rides[i], nil
	}
	if i, ok := s.historyIndex[id]; ok {
		return s.History[i], nil
	}
	return Ride{}, types.NotFound("ride", id)
}

type Store struct {
	current atomic.Pointer[Snapshot]
	logger  *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{logger: logger}
	empty, _ := NewSnapshot(nil, nil, nil)
	s.current.Store(empty)
	return s
}

// Snapshot returns the current generation. Callers keep using the returned
// value for the whole operation even if a reload happens meanwhile.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

func (s *Store) Replace(snap *Snapshot) {
	s.current.Store(snap)
}

// Reload fetches and parses all three datasets, then swaps them in together.
// On any fetch error the previous snapshot stays active.
func (s *Store) Reload(ctx context.Context, src Source) (*Snapshot, error) {
	texts := make(map[Kind]string, 3)
	for _, kind := range []Kind{KindHistory, KindUsers, KindRides} {
		text, err := src.Fetch(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("fetch %s dataset: %w", kind, err)
		}
		texts[kind] = text
	}

	snap, skipped := NewSnapshot(Parse(texts[KindHistory]), Parse(texts[KindUsers]), Parse(texts[KindRides]))
	for _, sk := range skipped {
		s.logger.Warn("dataset row skipped", "dataset", sk.Kind, "row", sk.Row, "err", sk.Err)
	}
	s.Replace(snap)
	s.logger.Info("datasets loaded",
		"history", len(snap.History),
		"users", len(snap.Users),
		"rides", len(snap.Rides),
		"skipped", len(skipped),
	)
	return snap, nil
}
