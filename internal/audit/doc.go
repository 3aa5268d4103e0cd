// Package audit carries bitguard's security event model and its asynchronous delivery.
//
// # Components
//
//   - [Event]: one record with a sortable ULID, type, subject, module and metadata.
//   - [Sink]: event consumer. Provided: [NoOpSink], [ChannelSink], [JSONWriterSink], [SlogSink].
//   - [Dispatcher]: bounded async relay that either blocks or drops when full.
//
// # What this package must NOT do
//
//   - Decide which events are emitted; the engine does that.
//   - Import bitguard or sibling internal packages.
package audit
