// Package favorites keeps a local index of favorited locations in step with
// the server's favorite records.
package favorites

import (
	"context"
	"fmt"
	"sort"

	"github.com/aussiebroadwan/dinein/pkg/dineinsdk"
)

// Action is what a toggle did on the server.
type Action string

const (
	Added   Action = "added"
	Removed Action = "removed"
)

// Result is the outcome of a toggle. FavoriteID is the created record for
// Added and the deleted record for Removed.
type Result struct {
	Action     Action
	FavoriteID int64
}

// Index maps location ids to favorite record ids and back. The zero value is
// an empty index. An Index is not safe for concurrent use; callers that share
// one should Clone before applying results.
type Index struct {
	byLocation map[int64]int64
	byFavorite map[int64]int64
}

// NewIndex builds an index from a full favorites listing. When a location
// appears twice the later record wins.
func NewIndex(favs []dineinsdk.Favorite) *Index {
	idx := &Index{
		byLocation: make(map[int64]int64, len(favs)),
		byFavorite: make(map[int64]int64, len(favs)),
	}
	for _, f := range favs {
		idx.set(f.LocationID, f.FavoriteID)
	}
	return idx
}

func (x *Index) set(locationID, favoriteID int64) {
	if x.byLocation == nil {
		x.byLocation = make(map[int64]int64)
		x.byFavorite = make(map[int64]int64)
	}
	if old, ok := x.byLocation[locationID]; ok {
		delete(x.byFavorite, old)
	}
	x.byLocation[locationID] = favoriteID
	x.byFavorite[favoriteID] = locationID
}

func (x *Index) remove(locationID int64) {
	if fid, ok := x.byLocation[locationID]; ok {
		delete(x.byFavorite, fid)
		delete(x.byLocation, locationID)
	}
}

// IsFavorite reports whether locationID is favorited.
func (x *Index) IsFavorite(locationID int64) bool {
	_, ok := x.byLocation[locationID]
	return ok
}

// FavoriteID returns the server record for locationID.
func (x *Index) FavoriteID(locationID int64) (int64, bool) {
	id, ok := x.byLocation[locationID]
	return id, ok
}

// LocationID returns the location of a favorite record.
func (x *Index) LocationID(favoriteID int64) (int64, bool) {
	id, ok := x.byFavorite[favoriteID]
	return id, ok
}

// Locations returns the favorited location ids in ascending order.
func (x *Index) Locations() []int64 {
	out := make([]int64, 0, len(x.byLocation))
	for id := range x.byLocation {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len is the number of favorited locations.
func (x *Index) Len() int { return len(x.byLocation) }

// Clone returns an independent copy.
func (x *Index) Clone() *Index {
	c := &Index{
		byLocation: make(map[int64]int64, len(x.byLocation)),
		byFavorite: make(map[int64]int64, len(x.byFavorite)),
	}
	for k, v := range x.byLocation {
		c.byLocation[k] = v
	}
	for k, v := range x.byFavorite {
		c.byFavorite[k] = v
	}
	return c
}

// Apply records the outcome of a toggle for locationID.
func (x *Index) Apply(locationID int64, r Result) {
	switch r.Action {
	case Added:
		x.set(locationID, r.FavoriteID)
	case Removed:
		x.remove(locationID)
	}
}

// Backend is the part of the session the reconciler needs.
// *dineinsdk.Session satisfies it.
type Backend interface {
	ListFavorites(ctx context.Context, userID int64) ([]dineinsdk.Favorite, error)
	AddFavorite(ctx context.Context, userID, locationID int64) (*dineinsdk.Favorite, error)
	RemoveFavorite(ctx context.Context, favoriteID int64) error
}

// Reconciler issues favorite commands. It never touches an Index itself;
// callers apply the returned Result to their own copy.
type Reconciler struct {
	backend Backend
}

func NewReconciler(backend Backend) *Reconciler {
	return &Reconciler{backend: backend}
}

// Rebuild fetches every favorite of the user and builds a fresh index.
func (r *Reconciler) Rebuild(ctx context.Context, userID int64) (*Index, error) {
	favs, err := r.backend.ListFavorites(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return NewIndex(favs), nil
}

// Toggle removes the favorite for locationID when idx has one and creates it
// otherwise. idx is only read.
func (r *Reconciler) Toggle(ctx context.Context, userID, locationID int64, idx *Index) (Result, error) {
	if favoriteID, ok := idx.FavoriteID(locationID); ok {
		if err := r.backend.RemoveFavorite(ctx, favoriteID); err != nil {
			return Result{}, fmt.Errorf("failed to remove favorite: %w", err)
		}
		return Result{Action: Removed, FavoriteID: favoriteID}, nil
	}

	fav, err := r.backend.AddFavorite(ctx, userID, locationID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to add favorite: %w", err)
	}
	return Result{Action: Added, FavoriteID: fav.FavoriteID}, nil
}
