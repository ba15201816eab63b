package devicestore

// Every persisted value lives under its own namespaced key.
const (
	authPrefix  = "dinein.auth."
	prefsPrefix = "dinein.prefs."

	KeyAccessToken  = authPrefix + "access_token"
	KeyRefreshToken = authPrefix + "refresh_token"
	KeyTokenType    = authPrefix + "token_type"
	KeyUsername     = authPrefix + "username"
	KeyUserID       = authPrefix + "user_id"

	KeyPermissionsAsked = prefsPrefix + "permissions_asked"
	KeyLastLoginEmail   = prefsPrefix + "last_login_email"
	KeyCachedLocation   = prefsPrefix + "cached_location"
)

// authKeys are cleared together on logout.
var authKeys = []string{
	KeyAccessToken,
	KeyRefreshToken,
	KeyTokenType,
	KeyUsername,
	KeyUserID,
}
