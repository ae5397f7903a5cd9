// Package eventlog records protocol events of the Volume Control Service.
//
// It is separate from operational logging (slog): the journal is a
// machine-readable trace of every control point write, read, notification and
// subscription change, suitable for replaying a session after the fact.
//
// Applications pick a Logger implementation:
//
//	// console, at debug level
//	events := eventlog.NewSlogAdapter(slog.Default())
//
//	// CBOR file
//	events, _ := eventlog.NewFileLogger("/var/log/vcp/renderer.vlog")
//
//	// both
//	events := eventlog.NewMultiLogger(console, file)
//
// Files are a stream of CBOR-encoded Event values with integer keys. Reader
// iterates them with an optional Filter.
package eventlog
