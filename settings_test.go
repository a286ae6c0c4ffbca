package reflux

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func startSync(t *testing.T, initial string) (*Settings, chan []byte, error) {
	t.Helper()
	ch := make(chan []byte, 4)
	ch <- []byte(initial)
	s := NewSettings(NewSyncChannelWatcher(ch)).SyncMode().ErrorHistorySize(4)
	return s, ch, s.Start(context.Background())
}

func TestSettings_InitialDocument(t *testing.T) {
	s, _, err := startSync(t, `{"base_url":"https://api.example.com","headers":{"X-Team":"core"}}`)
	if err != nil {
		t.Fatalf("Start error = %v", err)
	}

	if s.State() != StateHealthy {
		t.Errorf("expected healthy, got %s", s.State())
	}
	cur, ok := s.Current()
	if !ok || cur.BaseURL != "https://api.example.com" {
		t.Errorf("unexpected settings %+v", cur)
	}
	if cur.Header().Get("X-Team") != "core" {
		t.Errorf("expected header, got %v", cur.Header())
	}
}

func TestSettings_YAMLDocument(t *testing.T) {
	s, _, err := startSync(t, "base_url: https://yaml.example.com\nheaders:\n  X-Env: prod\n")
	if err != nil {
		t.Fatalf("Start error = %v", err)
	}
	cur, _ := s.Current()
	if cur.BaseURL != "https://yaml.example.com" || cur.Headers["X-Env"] != "prod" {
		t.Errorf("unexpected settings %+v", cur)
	}
}

func TestSettings_InitialInvalid(t *testing.T) {
	s, _, err := startSync(t, `{"base_url":"not a url"}`)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if s.State() != StateEmpty {
		t.Errorf("expected empty, got %s", s.State())
	}
	if _, ok := s.Current(); ok {
		t.Error("expected no current settings")
	}
	if s.LastError() == nil {
		t.Error("expected last error")
	}
}

func TestSettings_RollbackAndRecover(t *testing.T) {
	metrics := &countingMetrics{}
	ch := make(chan []byte, 4)
	ch <- []byte(`{"base_url":"https://a.example.com"}`)
	s := NewSettings(NewSyncChannelWatcher(ch)).SyncMode().ErrorHistorySize(4).Metrics(metrics)

	var changes [][2]string
	s.OnChange(func(prev, next HTTPSettings) {
		changes = append(changes, [2]string{prev.BaseURL, next.BaseURL})
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start error = %v", err)
	}

	ch <- []byte(`{"base_url":`)
	if !s.Process(context.Background()) {
		t.Fatal("expected a pending change")
	}
	if s.State() != StateDegraded {
		t.Errorf("expected degraded, got %s", s.State())
	}
	if cur, _ := s.Current(); cur.BaseURL != "https://a.example.com" {
		t.Errorf("expected previous settings kept, got %+v", cur)
	}
	if s.LastError() == nil {
		t.Error("expected last error")
	}

	ch <- []byte(`{"headers":{"":"empty key"}}`)
	s.Process(context.Background())
	if len(s.ErrorHistory()) != 2 {
		t.Errorf("expected 2 rejections, got %v", s.ErrorHistory())
	}

	ch <- []byte(`{"base_url":"https://b.example.com"}`)
	s.Process(context.Background())
	if s.State() != StateHealthy || s.LastError() != nil {
		t.Errorf("expected recovery, got %s %v", s.State(), s.LastError())
	}

	if s.Process(context.Background()) {
		t.Error("expected nothing pending")
	}

	want := [][2]string{{"", "https://a.example.com"}, {"https://a.example.com", "https://b.example.com"}}
	if len(changes) != len(want) || changes[0] != want[0] || changes[1] != want[1] {
		t.Errorf("expected changes %v, got %v", want, changes)
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	wantTransitions := [][2]SourceState{
		{StateLoading, StateHealthy},
		{StateHealthy, StateDegraded},
		{StateDegraded, StateHealthy},
	}
	if len(metrics.transitions) != len(wantTransitions) {
		t.Fatalf("expected transitions %v, got %v", wantTransitions, metrics.transitions)
	}
	for i := range wantTransitions {
		if metrics.transitions[i] != wantTransitions[i] {
			t.Errorf("transition %d: expected %v, got %v", i, wantTransitions[i], metrics.transitions[i])
		}
	}
}

func TestSettings_StartTwice(t *testing.T) {
	s, _, err := startSync(t, `{}`)
	if err != nil {
		t.Fatalf("Start error = %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("expected error on second Start")
	}
}

func TestSettings_SourceClosedEarly(t *testing.T) {
	ch := make(chan []byte)
	close(ch)
	s := NewSettings(NewSyncChannelWatcher(ch))
	if err := s.Start(context.Background()); err == nil {
		t.Error("expected error when source closes before the first document")
	}
}

type failingSource struct{}

func (failingSource) Watch(context.Context) (<-chan []byte, error) {
	return nil, errors.New("unavailable")
}

func TestSettings_SourceFails(t *testing.T) {
	err := NewSettings(failingSource{}).Start(context.Background())
	if err == nil {
		t.Fatal("expected start error")
	}
}

func TestSettings_ProcessOutsideSyncMode(t *testing.T) {
	s := NewSettings(NewChannelWatcher(make(chan []byte)))
	if s.Process(context.Background()) {
		t.Error("Process must be a no-op outside sync mode")
	}
}

func TestSettings_Debounce(t *testing.T) {
	clock := clockz.NewFakeClock()
	ch := make(chan []byte, 4)
	ch <- []byte(`{"base_url":"https://one.example.com"}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewSettings(NewChannelWatcher(ch)).Clock(clock).Debounce(time.Second)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start error = %v", err)
	}

	ch <- []byte(`{"base_url":"https://two.example.com"}`)
	ch <- []byte(`{"base_url":"https://three.example.com"}`)
	time.Sleep(20 * time.Millisecond)

	if cur, _ := s.Current(); cur.BaseURL != "https://one.example.com" {
		t.Errorf("change applied before debounce elapsed: %+v", cur)
	}

	clock.Advance(time.Second)
	clock.BlockUntilReady()

	deadline := time.Now().Add(time.Second)
	for {
		cur, _ := s.Current()
		if cur.BaseURL == "https://three.example.com" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected latest change applied, got %+v", cur)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSettingsSelectors(t *testing.T) {
	s, ch, err := startSync(t, `{"base_url":"https://a.example.com","headers":{"Authorization":"token a"}}`)
	if err != nil {
		t.Fatalf("Start error = %v", err)
	}

	baseURL := SettingsBaseURL[*AsyncState](s)
	headers := SettingsHeaders[*AsyncState](s)

	if got := baseURL(nil, nil, Action{}); got != "https://a.example.com" {
		t.Errorf("unexpected base url %q", got)
	}
	if got := headers(nil, nil, Action{}, HTTPRequest{}).Get("Authorization"); got != "token a" {
		t.Errorf("unexpected header %q", got)
	}

	ch <- []byte(`{"base_url":"https://b.example.com"}`)
	s.Process(context.Background())

	if got := baseURL(nil, nil, Action{}); got != "https://b.example.com" {
		t.Errorf("selector must read current settings, got %q", got)
	}
	if got := headers(nil, nil, Action{}, HTTPRequest{}).Get("Authorization"); got != "" {
		t.Errorf("expected header removed, got %q", got)
	}
}
