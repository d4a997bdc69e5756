// Package middleware adapts an edgeAuth.Engine to net/http.
//
// # Handlers
//
//   - [Edge]: serves the login and logout endpoints at the engine's
//     LoginPath and LogoutPath and guards every other route.
//   - [Guard]: authenticates each request and forwards valid ones.
//   - [LoginHandler], [LogoutHandler]: the endpoints on their own, for
//     routers that mount them explicitly.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; every decision is delegated to
// Engine.Handle, Engine.Login and Engine.Logout.
//
// # What this package must NOT do
//
//   - Parse ID tokens or session cookies directly.
//   - Call the identity provider.
//   - Write a response after the request context has ended.
package middleware
