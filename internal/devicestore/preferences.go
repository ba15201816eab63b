package devicestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LocationSource tells where a cached location came from.
type LocationSource string

const (
	LocationGPS    LocationSource = "gps"
	LocationManual LocationSource = "manual"
)

// CachedLocation is the last location the user searched around.
type CachedLocation struct {
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Label     string         `json:"label,omitempty"`
	Source    LocationSource `json:"source"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Preferences reads and writes the non-secret device preferences.
type Preferences struct {
	store Store
}

func NewPreferences(store Store) *Preferences {
	return &Preferences{store: store}
}

// PermissionsAsked reports whether the user was already prompted for device
// permissions.
func (p *Preferences) PermissionsAsked(ctx context.Context) (bool, error) {
	v, err := getString(ctx, p.store.KV(), KeyPermissionsAsked)
	if err != nil || v == "" {
		return false, err
	}
	return strconv.ParseBool(v)
}

func (p *Preferences) SetPermissionsAsked(ctx context.Context, asked bool) error {
	return p.store.KV().Put(ctx, KeyPermissionsAsked, []byte(strconv.FormatBool(asked)))
}

// LastLoginEmail returns "" when no login was recorded.
func (p *Preferences) LastLoginEmail(ctx context.Context) (string, error) {
	return getString(ctx, p.store.KV(), KeyLastLoginEmail)
}

func (p *Preferences) SetLastLoginEmail(ctx context.Context, email string) error {
	return p.store.KV().Put(ctx, KeyLastLoginEmail, []byte(email))
}

// CachedLocation returns ErrNotFound when no location was cached.
func (p *Preferences) CachedLocation(ctx context.Context) (CachedLocation, error) {
	raw, err := p.store.KV().Get(ctx, KeyCachedLocation)
	if err != nil {
		return CachedLocation{}, err
	}

	var loc CachedLocation
	if err := json.Unmarshal(raw, &loc); err != nil {
		return CachedLocation{}, fmt.Errorf("invalid cached location: %w", err)
	}
	return loc, nil
}

func (p *Preferences) SetCachedLocation(ctx context.Context, loc CachedLocation) error {
	switch loc.Source {
	case LocationGPS, LocationManual:
	default:
		return fmt.Errorf("unknown location source %q", loc.Source)
	}
	if loc.UpdatedAt.IsZero() {
		loc.UpdatedAt = time.Now().UTC()
	}

	raw, err := json.Marshal(loc)
	if err != nil {
		return err
	}
	return p.store.KV().Put(ctx, KeyCachedLocation, raw)
}

// ClearCachedLocation forgets the cached location.
func (p *Preferences) ClearCachedLocation(ctx context.Context) error {
	return p.store.KV().Delete(ctx, KeyCachedLocation)
}

// IsNotFound reports whether err means the value was never stored.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// All returns every stored preference keyed by its short name
// ("last_login_email", ...). Values are the raw stored text.
func (p *Preferences) All(ctx context.Context) (map[string]string, error) {
	raw, err := p.store.KV().List(ctx, prefsPrefix)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[strings.TrimPrefix(k, prefsPrefix)] = string(v)
	}
	return out, nil
}
