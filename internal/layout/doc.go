// Package layout implements a table-driven codec for fixed binary record
// headers.
//
// A Layout describes a header as a flat byte arena: an ordered list of
// Field descriptors, each naming its encoding kind, byte order, [Lo, Hi)
// byte range, and default value. Decode and Encode walk the same table, so
// read and write stay symmetric no matter how many fields the header
// grows. Reserved gaps are explicit Pad fields: skipped on decode, left
// zeroed on encode, never surfaced to callers.
//
// Fixed-width strings use the Windows-1252 single-byte encoding that the
// originating instrument software writes, right-trimmed of the layout's
// pad byte on decode and right-padded on encode.
package layout
