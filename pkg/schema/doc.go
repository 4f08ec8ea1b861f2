/*
Package schema compiles function parameter declarations into JSON Schema validators.

Each FunctionSpec declares its parameters as a map of name to domain.Param. Compile turns
that declaration into a JSON Schema object, compiled with santhosh-tekuri/jsonschema, and
Validate reports missing and mistyped arguments as a *domain.SchemaValidationError.
*/
package schema
