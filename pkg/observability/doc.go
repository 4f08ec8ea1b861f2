// Package observability exports session lifecycle signals as Prometheus metrics.
package observability
