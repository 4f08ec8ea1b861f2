/*
Package intakeflow is a conversation state machine for patient intake and appointment booking.

A flow is a table of nodes. Each node carries the messages to surface when it is entered and
the functions a language model may call while the node is current. A function call is
validated against its parameter schema, dispatched to a registered handler, and moves the
session to the node the handler returns. Rejected calls leave the session where it was, so
the model can retry with corrected arguments.

# Concept

The Engine holds the immutable, load-time validated flow together with the scheduling
collaborators (calendar backend, slot lock, clock). Each conversation gets its own Session,
which owns its context: the current node, the transcript, and the facts collected so far.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/newcast-health/intakeflow"
		"github.com/newcast-health/intakeflow/pkg/domain"
	)

	func main() {
		ctx := context.Background()

		// Bundled twelve-node intake flow with an in-memory calendar
		eng, err := intakeflow.New(ctx)
		if err != nil {
			log.Fatal(err)
		}

		sess := eng.NewSession("session-123")
		out, err := sess.Initialize(ctx)
		if err != nil {
			log.Fatal(err)
		}
		for _, msg := range out.Messages {
			log.Println(msg.Role, msg.Content)
		}

		// Arguments normally come from the model's function call
		out, err = sess.Invoke(ctx, "collect_patient_info", map[string]any{
			"name":     "Jane Doe",
			"birthday": "1990-01-01",
		})
		if err != nil {
			log.Println(domain.Classify(err).Message)
			return
		}
		log.Println("now at", out.NodeID)
	}
*/
package intakeflow
