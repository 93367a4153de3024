// Package ffmpeg supervises external encoder and prober subprocesses.
//
// The Executor launches one command at a time, enforces a deadline,
// captures both output streams, and classifies failures (missing binary,
// timeout, non-zero exit) with the services sentinel errors. Higher
// engines treat any returned error as "operation produced no usable
// output" and clean up partial files themselves.
package ffmpeg
