package dineinsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DateLayout is the calendar-day format used in slot queries.
const DateLayout = "2006-01-02"

// ============================================================================
// Availability
// ============================================================================

// AvailableSlots fetches the bookable slots for a location on the calendar
// day of date, in the date's own location. No timezone conversion is made.
func (s *Session) AvailableSlots(ctx context.Context, locationID int64, date time.Time) ([]AvailableSlot, error) {
	q := url.Values{
		"location_id":  {strconv.FormatInt(locationID, 10)},
		"desired_date": {date.Format(DateLayout)},
	}

	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/reservation/reservations/available_slots?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var slotsResp availableSlotsResponse
	if err := decodeJSON(resp, &slotsResp, ErrServerError); err != nil {
		return nil, err
	}
	return slotsResp.Data, nil
}

// ============================================================================
// Reservations
// ============================================================================

// CreateReservation submits a reservation and returns its id. Backend
// rejections unwrap to ErrReservationFailed and keep the backend's message.
func (s *Session) CreateReservation(ctx context.Context, req ReservationRequest) (int64, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/reservation/reservations", req)
	if err != nil {
		return 0, err
	}

	var created createReservationResponse
	if err := decodeJSON(resp, &created, ErrReservationFailed); err != nil {
		return 0, reservationError(err)
	}

	id := created.ReservationID
	if id == 0 {
		id = created.ID
	}
	if id == 0 {
		return 0, fmt.Errorf("%w: response carried no reservation id", ErrReservationFailed)
	}

	s.client.logger(ctx).InfoContext(ctx, "reservation created",
		"reservation_id", id,
		"location_id", req.LocationID,
	)
	return id, nil
}

// reservationError folds every 4xx except 429 into ErrReservationFailed.
func reservationError(err error) error {
	apiErr, ok := asAPIError(err)
	if !ok {
		return err
	}
	if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests {
		apiErr.Kind = ErrReservationFailed
	}
	return apiErr
}

// ListReservations returns one page of the user's reservations.
func (s *Session) ListReservations(ctx context.Context, query ReservationQuery) (*ListResponse[Reservation], error) {
	q := url.Values{}
	if query.UserID != 0 {
		q.Set("user_id", strconv.FormatInt(query.UserID, 10))
	}
	if query.Status != "" {
		q.Set("status", query.Status)
	}
	setPage(q, query.Cursor, query.Limit)

	path := "/reservation/reservations"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var list ListResponse[Reservation]
	if err := decodeJSON(resp, &list, ErrServerError); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetReservation fetches one reservation by id.
func (s *Session) GetReservation(ctx context.Context, id int64) (*Reservation, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, reservationPath(id), nil)
	if err != nil {
		return nil, err
	}

	var res Reservation
	if err := decodeJSON(resp, &res, ErrServerError); err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateReservation changes the non-nil fields of update.
func (s *Session) UpdateReservation(ctx context.Context, id int64, update ReservationUpdate) (*Reservation, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPut, reservationPath(id), update)
	if err != nil {
		return nil, err
	}

	var res Reservation
	if err := decodeJSON(resp, &res, ErrReservationFailed); err != nil {
		return nil, reservationError(err)
	}
	return &res, nil
}

// CancelReservation deletes a reservation.
func (s *Session) CancelReservation(ctx context.Context, id int64) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, reservationPath(id), nil)
	if err != nil {
		return err
	}
	if err := checkStatus(resp, ErrReservationFailed); err != nil {
		return reservationError(err)
	}
	return nil
}

func reservationPath(id int64) string {
	return "/reservation/reservations/" + strconv.FormatInt(id, 10)
}

// setPage adds cursor pagination parameters when set.
func setPage(q url.Values, cursor string, limit int) {
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
}
