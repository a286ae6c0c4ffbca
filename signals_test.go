package reflux

import "testing"

func TestRunSignals(t *testing.T) {
	cases := map[string]string{
		"reflux.run.started":   RunStarted.Name(),
		"reflux.run.pending":   RunPending.Name(),
		"reflux.run.succeeded": RunSucceeded.Name(),
		"reflux.run.failed":    RunFailed.Name(),
		"reflux.run.canceled":  RunCanceled.Name(),
		"reflux.run.reset":     RunReset.Name(),
	}
	for want, got := range cases {
		if got != want {
			t.Errorf("expected name %q, got %q", want, got)
		}
	}
}

func TestWatcherSignals(t *testing.T) {
	if WatcherStarted.Name() != "reflux.watcher.started" {
		t.Errorf("expected name 'reflux.watcher.started', got %q", WatcherStarted.Name())
	}
	if WatcherStopped.Name() != "reflux.watcher.stopped" {
		t.Errorf("expected name 'reflux.watcher.stopped', got %q", WatcherStopped.Name())
	}
	if WatcherDropped.Name() != "reflux.watcher.dropped" {
		t.Errorf("expected name 'reflux.watcher.dropped', got %q", WatcherDropped.Name())
	}
}

func TestSettingsStateChanged(t *testing.T) {
	if SettingsStateChanged.Name() != "reflux.settings.state.changed" {
		t.Errorf("expected name 'reflux.settings.state.changed', got %q", SettingsStateChanged.Name())
	}
}

func TestSettingsApplied(t *testing.T) {
	if SettingsApplied.Name() != "reflux.settings.applied" {
		t.Errorf("expected name 'reflux.settings.applied', got %q", SettingsApplied.Name())
	}
}
