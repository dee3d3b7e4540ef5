// Package cipher provides the AEAD and digest contract consumed by the
// secure networking layer.
//
// Both primitives use one explicit lifecycle state machine instead of
// mixing one-shot and streaming call styles:
//
//	UNINIT ──Init──▶ KEYED ──(UpdateAAD)*──(Update)*──Finalize──▶ FINALIZED
//
// For AEAD streams the tag lifecycle is tied to the terminal state:
// after an encrypt finalize the tag is readable with Tag; before a
// decrypt finalize the expected tag must be installed with SetTag. A
// tag mismatch surfaces as engine.ErrAuthenticationFailed, which is
// never folded into a generic I/O error: it indicates tampering.
//
// Seal and Open are thin one-shot conveniences over the same state
// machine.
package cipher
