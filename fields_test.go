package reflux

import (
	"testing"
	"time"
)

func TestKeyActionType(t *testing.T) {
	field := KeyActionType.Field("FETCH_USERS_PENDING")
	if field.Key().Name() != "action_type" {
		t.Errorf("expected key 'action_type', got %q", field.Key().Name())
	}
}

func TestKeyRunID(t *testing.T) {
	field := KeyRunID.Field("4f9c")
	if field.Key().Name() != "run_id" {
		t.Errorf("expected key 'run_id', got %q", field.Key().Name())
	}
}

func TestKeyEntity(t *testing.T) {
	field := KeyEntity.Field("user-1")
	if field.Key().Name() != "key" {
		t.Errorf("expected key 'key', got %q", field.Key().Name())
	}
}

func TestKeyStatus(t *testing.T) {
	field := KeyStatus.Field(404)
	if field.Key().Name() != "status" {
		t.Errorf("expected key 'status', got %q", field.Key().Name())
	}
}

func TestKeyDuration(t *testing.T) {
	field := KeyDuration.Field(250 * time.Millisecond)
	if field.Key().Name() != "duration" {
		t.Errorf("expected key 'duration', got %q", field.Key().Name())
	}
}

func TestKeyTakeType(t *testing.T) {
	field := KeyTakeType.Field(TakeLatest.String())
	if field.Key().Name() != "take_type" {
		t.Errorf("expected key 'take_type', got %q", field.Key().Name())
	}
}

func TestKeyOldNewState(t *testing.T) {
	if KeyOldState.Field("loading").Key().Name() != "old_state" {
		t.Error("expected key 'old_state'")
	}
	if KeyNewState.Field("healthy").Key().Name() != "new_state" {
		t.Error("expected key 'new_state'")
	}
}

func TestKeyDebounce(t *testing.T) {
	field := KeyDebounce.Field(100 * time.Millisecond)
	if field.Key().Name() != "debounce" {
		t.Errorf("expected key 'debounce', got %q", field.Key().Name())
	}
}
