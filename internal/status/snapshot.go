// internal/status/snapshot.go
package status

// Snapshot represents exactly what the status frame is allowed to deliver.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	Overruns       uint16
	SecondsInError uint16
}
