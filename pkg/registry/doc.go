/*
Package registry binds function names to handlers.

Handlers are registered by reference name together with the node ids they may return.
Bind resolves every FunctionSpec of a flow against the registered handlers once, at load
time, and returns an immutable Table. All referential checks happen in Bind: duplicate
function names within a node, unknown handler references, declared next nodes missing from
the flow, invalid parameter schemas, and nodes that are dead ends.
*/
package registry
