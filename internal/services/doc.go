// Package services implements the client for the Spotify Web API.
//
// # Client
//
// [SpotifyClient] is a thin wrapper over net/http. It reads the bearer token from a
// [SessionSource] on every call, paces requests with a [rate.Limiter], and decodes
// responses into the schema types from github.com/zmb3/spotify/v2.
//
// Pagination cursors are the absolute "next" URLs returned by the API and are used verbatim.
//
// # Error Handling
//
// Non-2xx responses carry the envelope {"error": {"status": 401, "message": "..."}}.
// The client logs "<message> (<status>)" and returns an [*APIError] wrapped in
// [shared.ErrAPIRequest]. Use errors.As to recover the status:
//
//	var apiErr *services.APIError
//	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized { ... }
//
// Nothing is retried and the token is never refreshed here; session upkeep belongs to the auth package.
package services
