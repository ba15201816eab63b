package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/dinein/pkg/dineinsdk"
)

const (
	// DefaultDurationMinutes is used when a draft leaves the duration unset.
	DefaultDurationMinutes = 120
)

var (
	// ErrTableUnavailable is a table that is not in the slot or does not seat
	// the party.
	ErrTableUnavailable = errors.New("table not available for this slot")

	// ErrNoTables is a slot offering no tables at all.
	ErrNoTables = errors.New("slot has no tables")
)

// Draft is an in-progress reservation. Slot and Table are nil until a
// selection is made and are cleared whenever the date or guest count changes.
// A Draft is not safe for concurrent use.
type Draft struct {
	Date   time.Time
	Guests int

	Slot  *dineinsdk.AvailableSlot
	Table *dineinsdk.Table

	OccasionTypeID  *int64
	DurationMinutes int
	Comments        string
}

// NewDraft starts a draft for a date and party size.
func NewDraft(date time.Time, guests int) *Draft {
	return &Draft{Date: date, Guests: guests}
}

// SetGuests changes the party size. Any change drops the current selection,
// since the chosen table may no longer seat the party.
func (d *Draft) SetGuests(guests int) {
	if guests == d.Guests {
		return
	}
	d.Guests = guests
	d.ClearSelection()
}

// SetDate changes the reservation day. Moving to another day drops the
// current selection.
func (d *Draft) SetDate(date time.Time) {
	y, m, dd := date.Date()
	oy, om, od := d.Date.Date()
	d.Date = date
	if y != oy || m != om || dd != od {
		d.ClearSelection()
	}
}

// ClearSelection drops the chosen slot and table.
func (d *Draft) ClearSelection() {
	d.Slot = nil
	d.Table = nil
}

// Select chooses slot and lets SelectSlot pick the table.
func (d *Draft) Select(slot dineinsdk.AvailableSlot) (Selection, error) {
	sel, ok := SelectSlot(slot, d.Guests)
	if !ok {
		return Selection{}, ErrNoTables
	}

	d.Slot = &sel.Slot
	d.Table = &sel.Table
	return sel, nil
}

// SelectTable chooses a specific table of slot. The table must be listed in
// the slot and seat the party.
func (d *Draft) SelectTable(slot dineinsdk.AvailableSlot, tableID int64) error {
	for _, t := range TablesForSlot(slot, d.Guests) {
		if t.TableID == tableID {
			d.Slot = &slot
			d.Table = &t
			return nil
		}
	}
	return fmt.Errorf("%w: table %d", ErrTableUnavailable, tableID)
}

// Complete reports whether both a slot and a table are chosen.
func (d *Draft) Complete() bool {
	return d.Slot != nil && d.Table != nil
}

// BuildReservationPayload combines the draft with the location and user into
// a reservation request. The date-time is the draft's calendar day joined
// with the slot time as "YYYY-MM-DDTHH:MM:00", with no offset.
func BuildReservationPayload(d Draft, locationID, userID int64) (dineinsdk.ReservationRequest, error) {
	if d.Slot == nil || d.Table == nil {
		return dineinsdk.ReservationRequest{}, ErrIncompleteSelection
	}

	hh, mm, _, err := ParseSlotTime(d.Slot.Time)
	if err != nil {
		return dineinsdk.ReservationRequest{}, err
	}

	duration := d.DurationMinutes
	if duration <= 0 {
		duration = DefaultDurationMinutes
	}

	return dineinsdk.ReservationRequest{
		LocationID:      locationID,
		UserID:          userID,
		TableID:         d.Table.TableID,
		ReservationDate: fmt.Sprintf("%sT%02d:%02d:00", d.Date.Format(dineinsdk.DateLayout), hh, mm),
		NumberOfGuests:  d.Guests,
		OccasionTypeID:  d.OccasionTypeID,
		DurationMinutes: duration,
		Comments:        d.Comments,
	}, nil
}

// Submitter creates reservations. *dineinsdk.Session satisfies it.
type Submitter interface {
	CreateReservation(ctx context.Context, req dineinsdk.ReservationRequest) (int64, error)
}

// Submit builds the payload and sends it. The draft is cleared only when the
// reservation was created; on any error it is left as it was.
func (d *Draft) Submit(ctx context.Context, s Submitter, locationID, userID int64) (int64, error) {
	req, err := BuildReservationPayload(*d, locationID, userID)
	if err != nil {
		return 0, err
	}

	id, err := s.CreateReservation(ctx, req)
	if err != nil {
		return 0, err
	}

	*d = Draft{}
	return id, nil
}
