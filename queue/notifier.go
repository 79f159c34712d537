package queue

// Notifier receives change signals from the cache. The hub implements it;
// tests plug in recorders. The payload is an event label only, never data:
// displays re-pull state through the read operations.
type Notifier interface {
	Broadcast(event string)
}

// NopNotifier discards every signal.
type NopNotifier struct{}

func (NopNotifier) Broadcast(string) {}
