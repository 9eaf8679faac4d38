// Package realtime fans publish outcome events out to server-sent event streams.
package realtime
