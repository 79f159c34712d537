package hub

import (
	"errors"
	"sync"
	"testing"

	"github.com/mmdatafocus/manufacture_backend/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubscriber struct {
	mu       sync.Mutex
	received []string
	sendErr  error
}

func (s *fakeSubscriber) Send(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.received = append(s.received, text)
	return nil
}

func (s *fakeSubscriber) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

func TestHub_BroadcastReachesEverySubscriber(t *testing.T) {
	h := New(config.GetLogger())
	a, b := &fakeSubscriber{}, &fakeSubscriber{}
	h.Register(a)
	h.Register(b)
	require.Equal(t, 2, h.Count())

	h.Broadcast("cache updated")

	assert.Equal(t, []string{"refresh"}, a.messages())
	assert.Equal(t, []string{"refresh"}, b.messages())
}

// Whatever triggered the broadcast, the wire message is always the literal
// "refresh": clients re-pull state over HTTP rather than parse payloads.
func TestHub_PayloadIsAlwaysRefresh(t *testing.T) {
	h := New(config.GetLogger())
	s := &fakeSubscriber{}
	h.Register(s)

	h.Broadcast("sync finished")
	h.Broadcast("new production item")

	assert.Equal(t, []string{"refresh", "refresh"}, s.messages())
}

func TestHub_FailingSubscriberIsSkippedNotDropped(t *testing.T) {
	h := New(config.GetLogger())
	ok1 := &fakeSubscriber{}
	broken := &fakeSubscriber{sendErr: errors.New("write: broken pipe")}
	ok2 := &fakeSubscriber{}
	h.Register(ok1)
	h.Register(broken)
	h.Register(ok2)

	h.Broadcast("update")

	assert.Equal(t, []string{"refresh"}, ok1.messages())
	assert.Equal(t, []string{"refresh"}, ok2.messages())
	// The failing connection stays registered; its own read loop is
	// responsible for tearing it down.
	assert.Equal(t, 3, h.Count())
}

func TestHub_Unregister(t *testing.T) {
	h := New(config.GetLogger())
	s := &fakeSubscriber{}
	h.Register(s)
	h.Unregister(s)
	require.Equal(t, 0, h.Count())

	h.Broadcast("update")

	assert.Empty(t, s.messages())
}

func TestHub_UnregisterUnknownIsNoOp(t *testing.T) {
	h := New(config.GetLogger())
	h.Unregister(&fakeSubscriber{})
	assert.Equal(t, 0, h.Count())
}
