// Package stomp implements the wire-level core of a STOMP 1.0/1.1
// client: frame representation, incremental parsing and compiling,
// the command builders and validators, the session state machine, and
// a failover address generator.
//
// The package performs no I/O and holds no connection. Every method
// that would traditionally write to a socket instead returns the
// Frame to send; every method that would traditionally read from one
// instead takes the Frame the caller already received. Moving bytes,
// dispatching messages to subscribers, and TLS/dial configuration are
// left to the transport built on top of this package.
package stomp
