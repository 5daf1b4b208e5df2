// Package server provides HTTP routing, middleware, and the OAuth callback endpoint used by the login command.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] is applied in the order it is added, so the first one added sees the request first.
//
// The [BasicRouter] implementation registers [http.ServeMux] method patterns ("GET /callback"); routes
// reported without a method are registered as GET.
//
// # OAuth Callback Handler
//
// [OAuthHandler] receives the authorization redirect. It validates the state parameter, exchanges the
// code together with the stored PKCE verifier, persists the session, and sends the result through a
// channel. It only processes one callback to prevent replay attacks.
//
// # Callback Server
//
// [CallbackServer] binds the configured host and port before the browser is opened, serves until the
// callback arrives, and is shut down by the caller.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
