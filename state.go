package reflux

// SourceState represents the health of a Settings instance.
type SourceState int32

const (
	// StateLoading indicates no document has been processed yet.
	StateLoading SourceState = iota

	// StateHealthy indicates valid settings are applied.
	StateHealthy

	// StateDegraded indicates the last change was rejected. The previous valid
	// settings remain current.
	StateDegraded

	// StateEmpty indicates no valid settings have ever been obtained. Watching
	// continues.
	StateEmpty
)

// String returns the string representation of the state.
func (s SourceState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateEmpty:
		return "empty"
	default:
		return "unknown"
	}
}
