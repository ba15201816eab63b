package dineinsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListFavorites returns every favorite of the user, following pagination
// cursors until the listing is exhausted. A cursor the server already handed
// out ends the listing, so a backend cycling between cursors cannot loop it.
func (s *Session) ListFavorites(ctx context.Context, userID int64) ([]Favorite, error) {
	var (
		all    []Favorite
		cursor string
		seen   = map[string]struct{}{"": {}}
	)

	for {
		q := url.Values{"user_id": {strconv.FormatInt(userID, 10)}}
		setPage(q, cursor, 0)

		resp, err := s.doAuthRequest(ctx, http.MethodGet, "/restaurants/location_favorites?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}

		var page ListResponse[Favorite]
		if err := decodeJSON(resp, &page, ErrServerError); err != nil {
			return nil, err
		}
		all = append(all, page.Data...)

		if !page.Meta.HasMore() {
			return all, nil
		}
		if _, ok := seen[page.Meta.NextCursor]; ok {
			s.client.logger(ctx).WarnContext(ctx, "favorites cursor repeated, stopping", "cursor", page.Meta.NextCursor)
			return all, nil
		}
		seen[page.Meta.NextCursor] = struct{}{}
		cursor = page.Meta.NextCursor
	}
}

// AddFavorite marks a location as favorite and returns the server record.
func (s *Session) AddFavorite(ctx context.Context, userID, locationID int64) (*Favorite, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/restaurants/location_favorites", createFavoriteRequest{
		UserID:     userID,
		LocationID: locationID,
	})
	if err != nil {
		return nil, err
	}

	var fav Favorite
	if err := decodeJSON(resp, &fav, ErrServerError); err != nil {
		return nil, err
	}
	if fav.FavoriteID == 0 {
		return nil, fmt.Errorf("%w: response carried no favorite id", ErrServerError)
	}
	if fav.LocationID == 0 {
		fav.LocationID = locationID
	}
	return &fav, nil
}

// RemoveFavorite deletes a favorite by its own id (not the location id).
func (s *Session) RemoveFavorite(ctx context.Context, favoriteID int64) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete,
		"/restaurants/location_favorites/"+strconv.FormatInt(favoriteID, 10), nil)
	if err != nil {
		return err
	}
	return checkStatus(resp, ErrServerError)
}
