// Package http provides HTTP handlers and middleware for the invoice desk API.
//
// The router exposes the following endpoints:
//   - GET /healthz: liveness probe, plain `OK`.
//   - POST /sessions: logs in. Body: {"username","password"}. Response:
//     {"token","user"} with the token also surfaced via the `X-Session-Token`
//     header and a `session_token` cookie.
//   - DELETE /sessions/current: ends the session extracted from the Authorization
//     header or session cookie. Returns 204 No Content and clears the cookie.
//   - GET /catalog, GET /draft, PATCH /draft/fields, PATCH /draft/items/{index}:
//     the draft editor. Every draft response is {"draft","calculated"}.
//   - POST /submissions, GET /submissions/status: sends the draft to its webhook
//     and reports the transient submission status.
//   - GET /admin/users, POST /admin/users, DELETE /admin/users/{id}?confirm=true:
//     administrator controlled team management exchanging the `userDTO` payload
//     defined in user_handler.go. Passwords are accepted but never returned.
//   - GET /admin/history, GET /admin/history/export?format=json|xlsx,
//     GET /admin/audit?limit=n, GET and PUT /admin/webhook {"webhookUrl"},
//     POST /admin/reset?confirm=true: administrator tools.
//
// Every endpoint except /healthz and POST /sessions requires a session; /admin
// routes additionally require the Admin role. Errors are encoded as
// {"error_code","message","errors"}.
package http
