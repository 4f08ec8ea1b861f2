/*
Package domain contains the core models of the intake flow engine.

It defines the static conversation graph (Flow, Node, FunctionSpec), the per-session
FlowContext that the engine mutates, the result and outcome types exchanged across the
function-call contract, and the error taxonomy. The package has no I/O and no
third-party dependencies.

# Key Entities

  - Node: one stage of the guided conversation with its messages and legal functions.
  - FunctionSpec: a function the caller may invoke while a node is current.
  - FlowContext: conversation history plus the collected facts of one session.
  - HandlerResult: the payload a handler returns together with the next node id.
  - Outcome: what the engine surfaces to the caller after initialize or invoke.
*/
package domain
