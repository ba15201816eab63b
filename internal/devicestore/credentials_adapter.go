package devicestore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aussiebroadwan/dinein/pkg/cryptox"
	"github.com/aussiebroadwan/dinein/pkg/dineinsdk"
)

// CredentialAdapter adapts a Store to the dineinsdk.CredentialStore
// interface. Access and refresh tokens are sealed before they are written;
// the remaining fields are stored as plain text.
type CredentialAdapter struct {
	store  Store
	sealer *cryptox.Sealer
}

// NewCredentialAdapter creates an adapter that implements
// dineinsdk.CredentialStore on top of a Store.
func NewCredentialAdapter(store Store, sealer *cryptox.Sealer) *CredentialAdapter {
	return &CredentialAdapter{store: store, sealer: sealer}
}

// LoadCredentials returns dineinsdk.ErrNoCredentials when no access token is
// stored. A token that cannot be opened (for example after the device key
// changed) is treated the same way.
func (a *CredentialAdapter) LoadCredentials(ctx context.Context) (dineinsdk.Credentials, error) {
	kv := a.store.KV()

	access, err := a.getSealed(ctx, kv, KeyAccessToken)
	if errors.Is(err, ErrNotFound) || errors.Is(err, errUnsealable) {
		return dineinsdk.Credentials{}, dineinsdk.ErrNoCredentials
	}
	if err != nil {
		return dineinsdk.Credentials{}, err
	}

	creds := dineinsdk.Credentials{AccessToken: access}

	refresh, err := a.getSealed(ctx, kv, KeyRefreshToken)
	switch {
	case err == nil:
		creds.RefreshToken = refresh
	case errors.Is(err, ErrNotFound), errors.Is(err, errUnsealable):
		// session continues without refresh
	default:
		return dineinsdk.Credentials{}, err
	}

	if creds.TokenType, err = getString(ctx, kv, KeyTokenType); err != nil {
		return dineinsdk.Credentials{}, err
	}
	if creds.Username, err = getString(ctx, kv, KeyUsername); err != nil {
		return dineinsdk.Credentials{}, err
	}

	uid, err := getString(ctx, kv, KeyUserID)
	if err != nil {
		return dineinsdk.Credentials{}, err
	}
	if uid != "" {
		if creds.UserID, err = strconv.ParseInt(uid, 10, 64); err != nil {
			return dineinsdk.Credentials{}, fmt.Errorf("invalid stored user id %q: %w", uid, err)
		}
	}

	return creds, nil
}

// SaveCredentials writes every field in one transaction. An empty refresh
// token removes the stored one.
func (a *CredentialAdapter) SaveCredentials(ctx context.Context, creds dineinsdk.Credentials) error {
	access, err := a.sealer.Seal([]byte(creds.AccessToken))
	if err != nil {
		return err
	}

	var refresh []byte
	if creds.RefreshToken != "" {
		if refresh, err = a.sealer.Seal([]byte(creds.RefreshToken)); err != nil {
			return err
		}
	}

	return a.store.WithTx(ctx, func(tx Tx) error {
		kv := tx.KV()

		if err := kv.Put(ctx, KeyAccessToken, access); err != nil {
			return err
		}
		if refresh != nil {
			if err := kv.Put(ctx, KeyRefreshToken, refresh); err != nil {
				return err
			}
		} else if err := kv.Delete(ctx, KeyRefreshToken); err != nil {
			return err
		}
		if err := kv.Put(ctx, KeyTokenType, []byte(creds.TokenType)); err != nil {
			return err
		}
		if err := kv.Put(ctx, KeyUsername, []byte(creds.Username)); err != nil {
			return err
		}
		return kv.Put(ctx, KeyUserID, []byte(strconv.FormatInt(creds.UserID, 10)))
	})
}

// ClearCredentials removes every auth key. Preferences are kept.
func (a *CredentialAdapter) ClearCredentials(ctx context.Context) error {
	return a.store.KV().Delete(ctx, authKeys...)
}

var errUnsealable = errors.New("devicestore: stored value cannot be opened")

func (a *CredentialAdapter) getSealed(ctx context.Context, kv KV, key string) (string, error) {
	sealed, err := kv.Get(ctx, key)
	if err != nil {
		return "", err
	}

	plain, err := a.sealer.Open(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", errUnsealable, key, err)
	}
	return string(plain), nil
}

// getString returns "" for a missing key.
func getString(ctx context.Context, kv KV, key string) (string, error) {
	v, err := kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(v), nil
}
