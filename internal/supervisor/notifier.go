// Author: Ing Muyleang (អុឹង មួយលៀង) — Ing_Muyleang
package supervisor

import (
	"os"
	"os/signal"
)

// Notifier is a one-shot cancellation signal. Notify may be called from
// any goroutine any number of times; at most one notification is ever
// buffered and the consumer reads at most one.
type Notifier struct {
	ch chan struct{}
}

// NewNotifier returns a Notifier with a single-slot buffer.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Notify delivers the cancellation. Extra calls are dropped.
func (n *Notifier) Notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// C returns the channel the supervisor waits on.
func (n *Notifier) C() <-chan struct{} {
	return n.ch
}

// NotifyOnSignal forwards the given OS signals to n. The returned func
// stops the forwarding.
func (n *Notifier) NotifyOnSignal(sigs ...os.Signal) (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, sigs...)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigCh:
				n.Notify()
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}
