package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/l1jgo/worldbuild/internal/core/event"
)

type ping struct{ N int }

func TestEventsArriveNextTick(t *testing.T) {
	b := event.NewBus()
	var got []int
	event.Subscribe(b, func(p ping) { got = append(got, p.N) })

	event.Emit(b, ping{1})
	event.Emit(b, ping{2})
	assert.Equal(t, 2, b.Pending())
	assert.Equal(t, 0, b.DispatchAll(), "nothing is delivered before the swap")

	b.SwapBuffers()
	assert.Equal(t, 0, b.Pending())
	assert.Equal(t, 2, b.DispatchAll())
	assert.Equal(t, []int{1, 2}, got)

	b.SwapBuffers()
	assert.Equal(t, 0, b.DispatchAll(), "events are delivered once")
}
