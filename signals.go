package reflux

import "github.com/zoobzio/capitan"

// Run lifecycle signals.
var (
	// RunStarted is emitted when a runner begins orchestrating a triggering action.
	RunStarted = capitan.NewSignal(
		"reflux.run.started",
		"Async run started",
	)

	// RunPending is emitted after the PENDING action is dispatched.
	RunPending = capitan.NewSignal(
		"reflux.run.pending",
		"Async run pending",
	)

	// RunSucceeded is emitted after the SUCCESS action is dispatched.
	RunSucceeded = capitan.NewSignal(
		"reflux.run.succeeded",
		"Async run succeeded",
	)

	// RunFailed is emitted after the FAIL action is dispatched.
	RunFailed = capitan.NewSignal(
		"reflux.run.failed",
		"Async run failed",
	)

	// RunCanceled is emitted when a run is torn down before settling.
	RunCanceled = capitan.NewSignal(
		"reflux.run.canceled",
		"Async run canceled",
	)

	// RunReset is emitted when a canceled run dispatches RESET.
	RunReset = capitan.NewSignal(
		"reflux.run.reset",
		"Async run reset after cancel",
	)
)

// Watcher signals.
var (
	// WatcherStarted is emitted when a watcher subscribes to its trigger.
	WatcherStarted = capitan.NewSignal(
		"reflux.watcher.started",
		"Watcher started",
	)

	// WatcherStopped is emitted when a watcher loop exits.
	WatcherStopped = capitan.NewSignal(
		"reflux.watcher.stopped",
		"Watcher stopped",
	)

	// WatcherDropped is emitted when the leading policy ignores a trigger.
	WatcherDropped = capitan.NewSignal(
		"reflux.watcher.dropped",
		"Trigger ignored while a run is in flight",
	)
)

// Settings signals.
var (
	// SettingsStarted is emitted when Settings begins watching its source.
	SettingsStarted = capitan.NewSignal(
		"reflux.settings.started",
		"Settings watching started",
	)

	// SettingsStopped is emitted when Settings stops watching.
	SettingsStopped = capitan.NewSignal(
		"reflux.settings.stopped",
		"Settings watching stopped",
	)

	// SettingsStateChanged is emitted on a source state transition.
	SettingsStateChanged = capitan.NewSignal(
		"reflux.settings.state.changed",
		"Settings state transition",
	)

	// SettingsChangeReceived is emitted when raw bytes arrive from the source.
	SettingsChangeReceived = capitan.NewSignal(
		"reflux.settings.change.received",
		"Raw settings change received",
	)

	// SettingsDecodeFailed is emitted when the codec rejects a document.
	SettingsDecodeFailed = capitan.NewSignal(
		"reflux.settings.decode.failed",
		"Settings decode failed",
	)

	// SettingsValidationFailed is emitted when a decoded document is invalid.
	SettingsValidationFailed = capitan.NewSignal(
		"reflux.settings.validation.failed",
		"Settings validation failed",
	)

	// SettingsApplied is emitted when new settings become current.
	SettingsApplied = capitan.NewSignal(
		"reflux.settings.applied",
		"Settings applied",
	)
)
