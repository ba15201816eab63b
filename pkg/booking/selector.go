package booking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/dinein/pkg/dineinsdk"
)

// DefaultLeadTime is the minimum gap between now and a bookable slot today.
const DefaultLeadTime = 30 * time.Minute

var (
	// ErrIncompleteSelection is returned when a draft has no slot or table.
	ErrIncompleteSelection = dineinsdk.ErrIncompleteSelection

	// ErrInvalidSlotTime is a slot time that is not HH:MM or HH:MM:SS.
	ErrInvalidSlotTime = errors.New("invalid slot time")
)

// TablesForSlot returns the tables of slot that seat at least guests, in the
// order the backend listed them. A slot with none is not selectable.
func TablesForSlot(slot dineinsdk.AvailableSlot, guests int) []dineinsdk.Table {
	var out []dineinsdk.Table
	for _, t := range slot.AvailableTables {
		if t.Capacity >= guests {
			out = append(out, t)
		}
	}
	return out
}

// Selection is a slot together with the table chosen in it.
type Selection struct {
	Slot  dineinsdk.AvailableSlot
	Table dineinsdk.Table

	// Fallback is set when no table seats the party and the first table of
	// the slot was taken instead.
	Fallback bool
}

// SelectSlot picks the smallest table that still seats guests. Ties go to
// the table listed first. When no table is large enough the first table of
// the slot is returned with Fallback set; callers are expected to have
// disabled such slots already. ok is false only for a slot with no tables.
func SelectSlot(slot dineinsdk.AvailableSlot, guests int) (sel Selection, ok bool) {
	if len(slot.AvailableTables) == 0 {
		return Selection{}, false
	}

	best := -1
	for i, t := range slot.AvailableTables {
		if t.Capacity < guests {
			continue
		}
		if best < 0 || t.Capacity < slot.AvailableTables[best].Capacity {
			best = i
		}
	}

	if best < 0 {
		return Selection{Slot: slot, Table: slot.AvailableTables[0], Fallback: true}, true
	}
	return Selection{Slot: slot, Table: slot.AvailableTables[best]}, true
}

// Selector decides which slots are too close to now to be offered.
type Selector struct {
	// Now defaults to time.Now
	Now func() time.Time

	// LeadTime defaults to DefaultLeadTime
	LeadTime time.Duration
}

func (s Selector) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s Selector) leadTime() time.Duration {
	if s.LeadTime <= 0 {
		return DefaultLeadTime
	}
	return s.LeadTime
}

// IsSlotInPast reports whether a slot at slotTime on date starts before now
// plus the lead time. Only slots on today's date can be past; slots on any
// other day never are. An unparseable slot time counts as past.
func (s Selector) IsSlotInPast(slotTime string, date time.Time) bool {
	now := s.now().In(date.Location())

	y, m, d := date.Date()
	ny, nm, nd := now.Date()
	if y != ny || m != nm || d != nd {
		return false
	}

	hh, mm, ss, err := ParseSlotTime(slotTime)
	if err != nil {
		return true
	}

	start := time.Date(y, m, d, hh, mm, ss, 0, date.Location())
	return start.Before(now.Add(s.leadTime()))
}

// ParseSlotTime splits "HH:MM" or "HH:MM:SS".
func ParseSlotTime(v string) (hour, minute, second int, err error) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidSlotTime, v)
	}

	nums := make([]int, 3)
	limits := []int{23, 59, 59}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] || len(p) > 2 {
			return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidSlotTime, v)
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], nil
}

// SlotView is a slot annotated for display.
type SlotView struct {
	Slot dineinsdk.AvailableSlot

	// Tables seat the party, see TablesForSlot
	Tables []dineinsdk.Table

	Past       bool
	Selectable bool
}

// Annotate marks every slot as past or not and lists the tables that seat
// guests. A slot is selectable when it is not past and has such a table.
func (s Selector) Annotate(slots []dineinsdk.AvailableSlot, date time.Time, guests int) []SlotView {
	out := make([]SlotView, 0, len(slots))
	for _, slot := range slots {
		tables := TablesForSlot(slot, guests)
		past := s.IsSlotInPast(slot.Time, date)
		out = append(out, SlotView{
			Slot:       slot,
			Tables:     tables,
			Past:       past,
			Selectable: !past && len(tables) > 0,
		})
	}
	return out
}
