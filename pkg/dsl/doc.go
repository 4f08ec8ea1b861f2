/*
Package dsl provides a fluent builder for constructing conversation flows in Go.

It is an alternative to YAML flow files, useful for tests and for flows generated at runtime.

Example usage:

	b := dsl.New("greeting")

	b.Add("ask_name").
		Role("You are a friendly receptionist.").
		Task("Ask for the caller's name.").
		Function("record_name", "Store the caller's name",
			dsl.String("name", "The caller's name").Required())

	b.Add("goodbye").
		Task("Say goodbye to {{.name}}.").
		End()

	loader, err := b.Build()
	// ... pass loader to intakeflow.New(intakeflow.WithLoader(loader))
*/
package dsl
