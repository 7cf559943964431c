// Package audio provides PCM playback on the host sound device using the
// oto/v3 library, plus a mock player for tests. Playback is asynchronous;
// callers wait on Done to learn when a stream has drained.
package audio
