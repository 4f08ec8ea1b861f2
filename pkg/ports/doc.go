/*
Package ports defines the driven ports (interfaces) of the intake flow engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to run against different calendar backends, flow sources, lock providers,
and summarizers.

# Key Interfaces

  - Calendar: lists busy intervals and creates events (memory, Redis, Google Calendar).
  - SlotLocker: short-lived locks guarding a slot while it is being booked.
  - FlowLoader: loads the static flow definition once at startup.
  - Summarizer: produces the summary message for reset-with-summary compaction.
*/
package ports
