/*
Package dineinsdk provides a client SDK for the dine-in restaurant discovery and
reservation backend.

# Client vs Session

The package is organized around two main types:

  - Client: unauthenticated operations (login, signup, password reset) and
    session creation
  - Session: authenticated operations with transparent token refresh

Create a Client and sign in:

	client := dineinsdk.NewClient("https://api.example.com", store)

	session, err := client.Login(ctx, dineinsdk.LoginRequest{
		Email:    "ana@example.com",
		Password: "secret123",
	})

Or resume a session persisted by a previous run:

	session, err := client.RestoreSession(ctx)
	if errors.Is(err, dineinsdk.ErrNoSession) {
		// route to login
	}

# Token Refresh

Every Session call attaches "Authorization: <type> <access token>". When the
backend answers 401 the session exchanges its refresh token at /auth/refresh
and resends the original request once with the new token. Concurrent
requests that hit a 401 at the same time share a single refresh call.

If the refresh fails the session is cleared (in memory and in the
CredentialStore), Client.OnSessionExpired is called and the call returns
ErrSessionExpired. A resent request that is rejected again also returns
ErrSessionExpired, but the freshly refreshed tokens are kept.

Access tokens are decoded without signature verification, only to read the
exp and user_id claims. The backend remains the authority.

# Errors

Every error wraps one sentinel (ErrValidation, ErrInvalidCredentials,
ErrSessionExpired, ErrRateLimited, ErrNetwork, ...) and can be tested with
errors.Is. Backend responses are additionally carried as *APIError, whose
Message holds the backend's own text. UserMessage turns any error into a
display string.

	_, err := session.CreateReservation(ctx, req)
	switch {
	case errors.Is(err, dineinsdk.ErrSessionExpired):
		// back to login
	case err != nil:
		fmt.Println(dineinsdk.UserMessage(err))
	}
*/
package dineinsdk
