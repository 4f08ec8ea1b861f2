/*
Package session manages the live conversations of a process.

Each session owns one engine. The Manager serializes requests on a session,
runs different sessions concurrently, cancels in-flight work when a session
is torn down, reaps idle sessions, and archives read-only snapshots through
ports.SessionArchive.
*/
package session
