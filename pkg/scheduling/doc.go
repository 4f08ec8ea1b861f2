// Package scheduling implements appointment availability and booking: time and date
// normalization, slot enumeration against busy intervals, and event creation through
// the Calendar port.
package scheduling
