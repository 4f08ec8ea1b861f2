/*
Package handlers implements the patient intake and appointment booking functions.

Register binds every handler to a registry under the function name used by the bundled
flow, declaring the node ids each handler may return. Handlers decode their arguments
into typed structs with mapstructure, validate them, and return a typed payload whose
Facts method feeds the session's collected facts.
*/
package handlers
