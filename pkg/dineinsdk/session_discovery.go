package dineinsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// SearchLocations returns one page of restaurant locations. Pass
// Meta.NextCursor back as query.Cursor for the next page.
func (s *Session) SearchLocations(ctx context.Context, query LocationQuery) (*ListResponse[Location], error) {
	q := url.Values{}
	if query.Search != "" {
		q.Set("search", query.Search)
	}
	if query.CategoryID != 0 {
		q.Set("category_id", strconv.FormatInt(query.CategoryID, 10))
	}
	if query.AmbienceID != 0 {
		q.Set("ambience_id", strconv.FormatInt(query.AmbienceID, 10))
	}
	setPage(q, query.Cursor, query.Limit)

	path := "/restaurants/locations"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var list ListResponse[Location]
	if err := decodeJSON(resp, &list, ErrServerError); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetLocation fetches a single location.
func (s *Session) GetLocation(ctx context.Context, id int64) (*Location, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/restaurants/locations/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return nil, err
	}

	var loc Location
	if err := decodeJSON(resp, &loc, ErrServerError); err != nil {
		return nil, err
	}
	return &loc, nil
}

// ListCategories returns every restaurant category.
func (s *Session) ListCategories(ctx context.Context) ([]Category, error) {
	return listAll[Category](ctx, s, "/restaurants/categories")
}

// ListAmbiences returns every ambience tag.
func (s *Session) ListAmbiences(ctx context.Context) ([]Ambience, error) {
	return listAll[Ambience](ctx, s, "/restaurants/ambiences")
}

func listAll[T any](ctx context.Context, s *Session, path string) ([]T, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var list ListResponse[T]
	if err := decodeJSON(resp, &list, ErrServerError); err != nil {
		return nil, err
	}
	return list.Data, nil
}

// LoadDiscovery fetches the first page of locations together with the
// category and ambience lists. The three requests run in parallel; the first
// failure cancels the others.
func (s *Session) LoadDiscovery(ctx context.Context, query LocationQuery) (*Discovery, error) {
	var (
		out       Discovery
		locations *ListResponse[Location]
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		locations, err = s.SearchLocations(gctx, query)
		return err
	})
	g.Go(func() error {
		var err error
		out.Categories, err = s.ListCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.Ambiences, err = s.ListAmbiences(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.Locations = *locations
	return &out, nil
}
