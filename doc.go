// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package jayo provides a segmented byte buffer and the buffered
// readers/writers built on top of it.
//
// Semantics and design:
//   - Segment: Buffer is an ordered sequence of fixed-capacity 8KiB segments.
//     Prepend, append, split and move are cheap because they operate on
//     segment boundaries and, where possible, on shared (copy-free) views of
//     a segment's backing array rather than byte-by-byte copies.
//   - Pool: segments are recycled through a two-tier SegmentPool (a per-P
//     sync.Pool tier plus a small bounded global overflow) instead of being
//     garbage collected on every Buffer operation.
//   - Layered I/O: BufferedReader pulls from a user-supplied RawReader on
//     demand; BufferedWriter coalesces writes and hands complete segments to
//     a user-supplied RawWriter. Blocking steps consult the caller's
//     CancelToken. The readers and writers do not arm a Watchdog
//     themselves; a caller may arm one to run an action (such as closing
//     the transport) when a deadline passes.
//   - Async mode: BufferedReader/BufferedWriter can optionally run a
//     background read-ahead or write-behind pump with a bounded byte-size
//     gate for backpressure; synchronous operation is the default.
//
// This package does not implement compression, TLS, sockets, a filesystem
// façade, hashing, an immutable byte-string type, or a persistent on-disk
// format. Those are external collaborators layered on top of RawReader and
// RawWriter.
package jayo

// SegmentSize is the fixed capacity, in bytes, of every Segment.
const SegmentSize = 8192

// ShareMinimum is the smallest split size at which Segment.split installs
// a shared copy-free view instead of copying bytes into a fresh pooled
// segment.
const ShareMinimum = 1024
