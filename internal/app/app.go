package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/dinein/internal/devicestore"
	"github.com/aussiebroadwan/dinein/internal/devicestore/drivers/sqlite"
	"github.com/aussiebroadwan/dinein/pkg/booking"
	"github.com/aussiebroadwan/dinein/pkg/cryptox"
	"github.com/aussiebroadwan/dinein/pkg/dineinsdk"
	"github.com/aussiebroadwan/dinein/pkg/favorites"
	"github.com/aussiebroadwan/dinein/pkg/httpx"
	"github.com/aussiebroadwan/dinein/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application holds the device-side dependencies shared by every command.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    devicestore.Store
	creds *devicestore.CredentialAdapter
	prefs *devicestore.Preferences

	client   *dineinsdk.Client
	selector booking.Selector

	expired atomic.Bool
}

// New opens the device store and builds the API client. Log output goes to
// logOutput (stderr when nil).
func New(cfg Config, logOutput io.Writer) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "dinein",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  logOutput,
		}),
		selector: booking.Selector{LeadTime: cfg.BookingLead},
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	key, err := cryptox.LoadKeyMaterial(cfg.MasterKeyPath, cfg.MasterKey)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to load device key: %w", err)
	}
	sealer, err := cryptox.NewSealer(key)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize sealer: %w", err)
	}

	app.creds = devicestore.NewCredentialAdapter(app.db, sealer)
	app.prefs = devicestore.NewPreferences(app.db)
	app.initClient()

	return app, nil
}

// initDatabase opens the device store and applies migrations
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(app.cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize device store: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply device store migrations: %w", err)
	}

	app.logger.Debug("device store ready", "file", app.cfg.DatabaseFile)
	return nil
}

// initClient builds the SDK client. Both HTTP clients share one throttled,
// logged transport and differ only in timeout. Neither the client nor the
// transport pins a logger; they use the one in the request context, falling
// back to the default installed by slogx.New.
func (app *Application) initClient() {
	transport := slogx.NewTransport(
		httpx.NewThrottle(http.DefaultTransport, app.cfg.RateLimit, httpx.HostKeyExtractor),
		nil,
	)

	client := dineinsdk.NewClient(app.cfg.APIURL, app.creds)
	client.HTTPClient = &http.Client{Timeout: app.cfg.PublicTimeout, Transport: transport}
	client.AuthHTTPClient = &http.Client{Timeout: app.cfg.AuthTimeout, Transport: transport}
	client.OnSessionExpired = func() {
		app.expired.Store(true)
		app.logger.Warn("session expired, stored credentials cleared")
	}
	app.client = client
}

// Close releases the device store.
func (app *Application) Close() error {
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing device store", "error", err)
		return err
	}
	return nil
}

func (app *Application) Config() Config { return app.cfg }
func (app *Application) Logger() *slog.Logger { return app.logger }
func (app *Application) Client() *dineinsdk.Client { return app.client }
func (app *Application) Preferences() *devicestore.Preferences { return app.prefs }
func (app *Application) Selector() booking.Selector { return app.selector }

// SessionExpired reports whether a call in this run force-cleared the session.
func (app *Application) SessionExpired() bool { return app.expired.Load() }

// Login signs in and remembers the email for the next prompt.
func (app *Application) Login(ctx context.Context, email, password string) (*dineinsdk.Session, error) {
	session, err := app.client.Login(ctx, dineinsdk.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	if err := app.prefs.SetLastLoginEmail(ctx, strings.TrimSpace(email)); err != nil {
		app.logger.Warn("failed to remember login email", "error", err)
	}
	return session, nil
}

// Session restores the stored session. ErrNoSession means the user has to
// log in first.
func (app *Application) Session(ctx context.Context) (*dineinsdk.Session, error) {
	return app.client.RestoreSession(ctx)
}

// Favorites rebuilds the favorites index for the signed-in user.
func (app *Application) Favorites(ctx context.Context, session *dineinsdk.Session) (*favorites.Index, error) {
	return favorites.NewReconciler(session).Rebuild(ctx, session.UserID())
}

// ToggleFavorite flips locationID and returns the outcome.
func (app *Application) ToggleFavorite(ctx context.Context, session *dineinsdk.Session, locationID int64) (favorites.Result, error) {
	r := favorites.NewReconciler(session)

	idx, err := r.Rebuild(ctx, session.UserID())
	if err != nil {
		return favorites.Result{}, err
	}
	return r.Toggle(ctx, session.UserID(), locationID, idx)
}

// BookRequest is everything the book command collects before submitting.
type BookRequest struct {
	LocationID      int64
	Date            time.Time
	Guests          int
	SlotTime        string
	TableID         int64 // zero picks the tightest fit
	OccasionTypeID  *int64
	DurationMinutes int
	Comments        string
}

// ErrSlotUnavailable is returned when the requested time is not offered,
// has already passed, or has no table that seats the party.
var ErrSlotUnavailable = errors.New("slot not available")

// Book loads the slots for the requested day, selects a table and submits the
// reservation. It returns the new reservation id and the table used.
func (app *Application) Book(ctx context.Context, session *dineinsdk.Session, req BookRequest) (int64, dineinsdk.Table, error) {
	slots, err := booking.NewSlotLoader(session).Load(ctx, req.LocationID, req.Date)
	if err != nil {
		return 0, dineinsdk.Table{}, err
	}

	var view *booking.SlotView
	for _, v := range app.selector.Annotate(slots, req.Date, req.Guests) {
		if sameSlotTime(v.Slot.Time, req.SlotTime) {
			view = &v
			break
		}
	}
	if view == nil || !view.Selectable {
		return 0, dineinsdk.Table{}, fmt.Errorf("%w: %s", ErrSlotUnavailable, req.SlotTime)
	}

	draft := booking.NewDraft(req.Date, req.Guests)
	draft.OccasionTypeID = req.OccasionTypeID
	draft.Comments = req.Comments
	if req.DurationMinutes > 0 {
		draft.DurationMinutes = req.DurationMinutes
	}

	if req.TableID != 0 {
		if err := draft.SelectTable(view.Slot, req.TableID); err != nil {
			return 0, dineinsdk.Table{}, err
		}
	} else if _, err := draft.Select(view.Slot); err != nil {
		return 0, dineinsdk.Table{}, err
	}

	table := *draft.Table
	id, err := draft.Submit(ctx, session, req.LocationID, session.UserID())
	if err != nil {
		return 0, dineinsdk.Table{}, err
	}
	return id, table, nil
}

func sameSlotTime(a, b string) bool {
	ah, am, _, errA := booking.ParseSlotTime(a)
	bh, bm, _, errB := booking.ParseSlotTime(b)
	return errA == nil && errB == nil && ah == bh && am == bm
}
