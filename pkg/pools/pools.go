// Package pools reuses the large, short-lived buffers the server churns
// through: encoded layout snapshots and rendered frames.
//
//   - BytePool: size-class pooling of byte slices (snapshot encoding)
//   - BufferPool: pooling of bytes.Buffer with a retention cap (frames)
package pools
