// Package handle implements opaque ownership of native values for hosts on
// the far side of a binding boundary.
//
// A Handle owns exactly one value and a release function. The host holds the
// handle (or, for remote hosts, a numeric token issued by a Table) and never
// sees the value's layout. Release runs exactly once: on an explicit Release,
// on Table.Drop, or from a runtime cleanup when the handle becomes unreachable.
package handle
