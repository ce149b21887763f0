// Package server provides the HTTP transport of the scheduling assistant.
//
// # Key Components
//
// ServerContext holds the agent, the chat session store and the Google
// OAuth flow shared by all handlers. HTTPServer routes:
//   - GET /: liveness banner
//   - POST /chat: runs the agent and streams events as NDJSON, one flushed
//     line per event, storing the turn when a session_id is given
//   - GET /auth/login, /auth/callback, /auth/status: Google Calendar consent
//   - /sessions and /sessions/{id}: create, list, read, rename and delete
//     stored chats
//   - /healthz, /readyz, /healthz/detailed: Kubernetes probes
//
// Every request passes through the metrics middleware, which records
// http_requests_total by route pattern, and the CORS middleware when allowed
// origins are configured. MetricsServer exposes Prometheus metrics on a
// separate port.
package server
