package reflux

import "github.com/zoobzio/capitan"

// Field keys for run and watcher events.
var (
	// KeyActionType is the type of the action that triggered or settled a run.
	KeyActionType = capitan.NewStringKey("action_type")

	// KeyRunID identifies one orchestration run.
	KeyRunID = capitan.NewStringKey("run_id")

	// KeyEntity is the entity key of a keyed run.
	KeyEntity = capitan.NewStringKey("key")

	// KeyStatus is the HTTP-style status of a failure.
	KeyStatus = capitan.NewIntKey("status")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyDuration is the elapsed time of a run.
	KeyDuration = capitan.NewDurationKey("duration")

	// KeyTakeType is the concurrency policy of a watcher.
	KeyTakeType = capitan.NewStringKey("take_type")

	// KeyUnits is the number of units of work in a run.
	KeyUnits = capitan.NewIntKey("units")
)

// Field keys for settings events.
var (
	// KeyState is the current state of the settings source.
	KeyState = capitan.NewStringKey("state")

	// KeyOldState is the previous state before a transition.
	KeyOldState = capitan.NewStringKey("old_state")

	// KeyNewState is the new state after a transition.
	KeyNewState = capitan.NewStringKey("new_state")

	// KeyDebounce is the configured debounce duration.
	KeyDebounce = capitan.NewDurationKey("debounce")

	// KeyContentType is the MIME type of the settings codec.
	KeyContentType = capitan.NewStringKey("content_type")
)
