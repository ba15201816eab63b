package dineinsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ListReviews returns one page of reviews for a location.
func (s *Session) ListReviews(ctx context.Context, locationID int64, cursor string, limit int) (*ListResponse[Review], error) {
	q := url.Values{"location_id": {strconv.FormatInt(locationID, 10)}}
	setPage(q, cursor, limit)

	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/reviews/reviews?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var list ListResponse[Review]
	if err := decodeJSON(resp, &list, ErrServerError); err != nil {
		return nil, err
	}
	return &list, nil
}

// CreateReview posts a review. UserID defaults to the signed-in user.
func (s *Session) CreateReview(ctx context.Context, req ReviewRequest) (*Review, error) {
	if req.UserID == 0 {
		req.UserID = s.UserID()
	}
	if err := validationErr(req.Validate()); err != nil {
		return nil, err
	}

	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/reviews/reviews", req)
	if err != nil {
		return nil, err
	}

	var review Review
	if err := decodeJSON(resp, &review, ErrServerError); err != nil {
		return nil, err
	}
	return &review, nil
}
