package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/dinein/pkg/booking"
	"github.com/aussiebroadwan/dinein/pkg/dineinsdk"
)

// gatedFetcher blocks each fetch until its date's gate is released, and
// ignores cancellation so an overtaken response can still arrive late.
type gatedFetcher struct {
	gates    map[string]chan struct{}
	started  chan string
	canceled chan string
}

func (f *gatedFetcher) AvailableSlots(ctx context.Context, _ int64, date time.Time) ([]dineinsdk.AvailableSlot, error) {
	day := date.Format(dineinsdk.DateLayout)
	f.started <- day

	go func() {
		<-ctx.Done()
		f.canceled <- day
	}()

	<-f.gates[day]
	return []dineinsdk.AvailableSlot{{Time: day}}, nil
}

func TestSlotLoaderLatestWins(t *testing.T) {
	t.Parallel()

	first := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	second := first.AddDate(0, 0, 1)

	f := &gatedFetcher{
		gates: map[string]chan struct{}{
			"2025-03-10": make(chan struct{}),
			"2025-03-11": make(chan struct{}),
		},
		started:  make(chan string, 2),
		canceled: make(chan string, 2),
	}
	loader := booking.NewSlotLoader(f)

	type result struct {
		slots []dineinsdk.AvailableSlot
		err   error
	}
	firstDone := make(chan result, 1)
	go func() {
		slots, err := loader.Load(t.Context(), 1, first)
		firstDone <- result{slots, err}
	}()
	require.Equal(t, "2025-03-10", <-f.started)

	secondDone := make(chan result, 1)
	go func() {
		slots, err := loader.Load(t.Context(), 1, second)
		secondDone <- result{slots, err}
	}()
	require.Equal(t, "2025-03-11", <-f.started)

	// Starting the second load cancels the first.
	require.Equal(t, "2025-03-10", <-f.canceled)

	// The newer request answers first, then the stale one arrives late.
	close(f.gates["2025-03-11"])
	r := <-secondDone
	require.NoError(t, r.err)
	require.Equal(t, "2025-03-11", r.slots[0].Time)

	close(f.gates["2025-03-10"])
	r = <-firstDone
	require.ErrorIs(t, r.err, booking.ErrSuperseded)
	require.Nil(t, r.slots)
}

func TestSlotLoaderSequential(t *testing.T) {
	t.Parallel()

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	gate := make(chan struct{})
	close(gate)

	f := &gatedFetcher{
		gates:    map[string]chan struct{}{"2025-03-10": gate},
		started:  make(chan string, 2),
		canceled: make(chan string, 2),
	}
	loader := booking.NewSlotLoader(f)

	for range 2 {
		slots, err := loader.Load(t.Context(), 1, day)
		require.NoError(t, err)
		require.Len(t, slots, 1)
	}
}
