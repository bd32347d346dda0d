// Package report builds usage reports: immutable snapshots of process
// memory, uptime, environment and the most used resources.
//
// Build is a pure function of its Input; callers gather the input
// (ReadMemoryStats, tracker TopN) and decide where the report goes.
package report
