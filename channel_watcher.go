package reflux

import "context"

// ChannelWatcher feeds Settings from a byte channel the caller writes
// settings documents to. Documents are copied on receipt, so callers may
// reuse their buffers.
type ChannelWatcher struct {
	ch     <-chan []byte
	direct bool
}

// NewChannelWatcher creates a ChannelWatcher that forwards documents through
// its own goroutine until ctx ends or ch closes.
func NewChannelWatcher(ch <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{ch: ch}
}

// NewSyncChannelWatcher creates a ChannelWatcher that hands ch to Settings
// as is. Pair it with Settings.SyncMode for deterministic tests.
func NewSyncChannelWatcher(ch <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{ch: ch, direct: true}
}

var _ Source = (*ChannelWatcher)(nil)

// Watch returns the document stream.
func (w *ChannelWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	if w.direct {
		return w.ch, nil
	}

	out := make(chan []byte)
	go w.forward(ctx, out)
	return out, nil
}

func (w *ChannelWatcher) forward(ctx context.Context, out chan<- []byte) {
	defer close(out)
	for {
		var doc []byte
		select {
		case <-ctx.Done():
			return
		case v, ok := <-w.ch:
			if !ok {
				return
			}
			doc = append([]byte(nil), v...)
		}

		select {
		case out <- doc:
		case <-ctx.Done():
			return
		}
	}
}
