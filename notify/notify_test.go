package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiFansOut(t *testing.T) {
	var a, b []Event
	m := Multi{
		Func(func(ev Event) { a = append(a, ev) }),
		Func(func(ev Event) { b = append(b, ev) }),
	}
	m.Notify(Event{Type: TypeSessionUpdated, SessionID: "s1"})

	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
	assert.Equal(t, "s1", a[0].SessionID)
}

func TestHubNotifyNeverBlocks(t *testing.T) {
	// Hub.Run is intentionally not started: the broadcast queue fills up
	// and further events must be dropped, not block.
	h := NewHub(nil)
	for i := 0; i < hubBroadcastBuf+10; i++ {
		h.Notify(Event{Type: TypeMessage})
	}
}
