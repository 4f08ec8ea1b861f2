// Package redis provides Redis-backed adapters: a slot locker shared across replicas,
// a calendar for deployments without an external calendar, and a session archive.
package redis
