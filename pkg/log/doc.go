// Package log provides structured protocol event logging for the
// secure networking layer.
//
// Events are captured at the socket, engine and keep-alive layers and
// delivered to a Logger implementation chosen by the application:
// NoopLogger (discard), WriterLogger (CBOR stream, suitable for later
// replay and inspection) or SlogAdapter (console via log/slog).
//
// Retryable would-block conditions are by contract never logged as
// errors; they are expected steady-state signals on non-blocking
// sockets.
package log
