// Package media defines the canonical description of a media file and the
// codec/container classification used to build encoder invocations.
//
// Track stream indices are always ffprobe's global stream indices, never
// per-type positions. Every -map built elsewhere relies on that.
package media
