// Package auth implements the OAuth2 Authorization Code flow with PKCE and the session lifecycle.
//
// A [Flow] moves through three states:
//
//	ANONYMOUS -> AWAITING_CALLBACK -> AUTHENTICATED -> ANONYMOUS
//
// [Flow.BeginLogin] persists a verifier and sends the user agent to the authorization page.
// The callback delivers a code to [Flow.CompleteLogin], which exchanges it together with the
// verifier. [Flow.Resume] is run on every start: it logs out an expired session and otherwise
// refreshes unconditionally.
//
// All state goes through the [TokenStore], which sits on a [models.Store].
package auth
