package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aussiebroadwan/dinein/pkg/dineinsdk"
)

// ErrSuperseded is returned by SlotLoader.Load when a newer Load was issued
// before this one finished. Its result must not be shown.
var ErrSuperseded = errors.New("slot request superseded")

// SlotFetcher fetches raw slots. *dineinsdk.Session satisfies it.
type SlotFetcher interface {
	AvailableSlots(ctx context.Context, locationID int64, date time.Time) ([]dineinsdk.AvailableSlot, error)
}

// SlotLoader serializes slot fetches for one booking screen: the latest Load
// wins. Starting a Load cancels the one in flight, and a Load that was
// overtaken reports ErrSuperseded even if its response arrived.
type SlotLoader struct {
	fetcher SlotFetcher

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

func NewSlotLoader(fetcher SlotFetcher) *SlotLoader {
	return &SlotLoader{fetcher: fetcher}
}

// Load fetches the slots of locationID on date.
func (l *SlotLoader) Load(ctx context.Context, locationID int64, date time.Time) ([]dineinsdk.AvailableSlot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	seq := l.seq
	l.cancel = cancel
	l.mu.Unlock()

	slots, err := l.fetcher.AvailableSlots(ctx, locationID, date)

	l.mu.Lock()
	latest := seq == l.seq
	if latest {
		l.cancel = nil
	}
	l.mu.Unlock()

	if !latest {
		return nil, ErrSuperseded
	}
	return slots, err
}
