// Package vcs implements the renderer side of the Bluetooth Volume Control
// Service: the volume state store, the control point processor, the
// notification gateway and the read accessors.
//
// A control point write runs as one critical section: the processor reads the
// store, checks the change counter and the opcode, commits the new state with
// an incremented counter and notifies every subscribed observer before the
// next write is admitted. A write carrying a stale counter is rejected without
// touching the state, so a client that raced another writer, or replayed an
// old request, cannot apply it twice.
//
// Bindings (GATT, websocket, simulators) hold a Gateway each and call
// Service.WriteControlPoint, Service.ReadState and Service.ReadFlags with the
// raw bytes they received.
package vcs
