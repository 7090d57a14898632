// Package vcdiff implements the VCDIFF generic differencing and
// compression format described in RFC 3284, together with the SDCH-style
// extensions found in the wild: the interleaved layout, an Adler32
// checksum per target window, and custom code tables.
//
// Given a dictionary (the reference byte sequence) and a target byte
// sequence, an [Encoder] is driven by a caller-supplied matcher through
// calls to Add, Copy and Run to produce a delta file; a [Decoder] holding
// the same dictionary reconstructs the target from that delta file.
//
// The package does not choose ADD/COPY/RUN boundaries itself — that is
// the job of a matching engine layered on top — and it does not wrap
// files or streams into a command-line tool. Both are treated as external
// collaborators.
package vcdiff
