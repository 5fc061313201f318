// Package sessionstore defines persistence-facing contracts for saving and
// resuming wizard sessions, plus a small manager that layers optimistic
// concurrency on top of any Store implementation.
//
// Responsibilities:
//   - Store[T] only loads/saves a single record for a single Ref.
//   - Manager wraps Store[rasdesign.SessionState] with ETag checking and
//     snapshot id assignment, and can resume a live Session directly.
//   - The core rasdesign package remains persistence-agnostic; all storage
//     logic stays behind Store implementations supplied by consumers.
//
// Deterministic keys:
//
//	Ref.Identifier() provides a canonical storage key: committed designs key
//	by project and design handle, sessions that have not committed yet key by
//	a caller-chosen draft id.
package sessionstore
