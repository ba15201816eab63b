package dineinsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ListNotifications returns one page of the signed-in user's notifications.
func (s *Session) ListNotifications(ctx context.Context, cursor string, limit int) (*ListResponse[Notification], error) {
	q := url.Values{}
	setPage(q, cursor, limit)

	path := "/notifications/notifications"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var list ListResponse[Notification]
	if err := decodeJSON(resp, &list, ErrServerError); err != nil {
		return nil, err
	}
	return &list, nil
}

// MarkNotificationRead flags a notification as read.
func (s *Session) MarkNotificationRead(ctx context.Context, id int64) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPut,
		"/notifications/notifications/"+strconv.FormatInt(id, 10)+"/read", nil)
	if err != nil {
		return err
	}
	return checkStatus(resp, ErrServerError)
}
