// Package cache stores fetched cloud audio payloads in two tiers: an
// in-memory LRU and a zstd-compressed directory that survives restarts.
// Entries are keyed by the (text, voice) pair they were synthesized from.
package cache
