// Package http exposes the function-call contract of intake sessions over HTTP.
//
// Routes:
//
//	POST   /sessions               start a session, returns the initial node
//	GET    /sessions/{id}          session context (live or archived)
//	POST   /sessions/{id}/invoke   invoke a function of the current node
//	POST   /sessions/{id}/messages record user or assistant turns
//	GET    /sessions/{id}/events   server-sent context diffs
//	DELETE /sessions/{id}          end the session
//	GET    /flow/graph             flow nodes and edges (JSON or Mermaid)
//	GET    /health, /info, /metrics
package http
