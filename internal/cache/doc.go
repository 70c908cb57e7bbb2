// Package cache stores analysis results keyed by the uploaded image.
//
// Two Store implementations are provided: Memory, an in-process map with
// per-entry expiry, and Redis, for sharing results between instances. Values
// are opaque bytes; GetJSON and SetJSON encode them with json-iterator.
//
// A miss is reported as ok == false with a nil error. Errors are reserved for
// a store that cannot be reached or a value that cannot be decoded, and
// callers are expected to treat them as a miss.
package cache
