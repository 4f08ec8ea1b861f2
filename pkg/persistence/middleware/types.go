// Package middleware wraps a session archive to protect the patient data it stores.
package middleware

import "github.com/newcast-health/intakeflow/pkg/ports"

// Middleware allows wrapping a SessionArchive to add behavior.
type Middleware func(ports.SessionArchive) ports.SessionArchive

// Chain applies mws so the first one sees snapshots first.
func Chain(archive ports.SessionArchive, mws ...Middleware) ports.SessionArchive {
	for i := len(mws) - 1; i >= 0; i-- {
		archive = mws[i](archive)
	}
	return archive
}
