// Package vm implements the Moth message-dispatch engine.
//
// This package contains:
//   - Process-wide selector interning
//   - ClassBuilder assembly into immutable class descriptors
//   - Flattened dispatch tables of capabilities (methods, slot accessors,
//     nested-class accessors)
//   - Self-specializing call sites (eager nodes, guarded inline caches,
//     generic lookup) plus super-send and block-invocation variants
//   - The kernel classes whose primitives back the generic send path
package vm
