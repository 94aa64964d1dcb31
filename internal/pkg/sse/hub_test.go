package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHub_PublishIsTenantScoped(t *testing.T) {
	hub := NewHub()
	a, unsubA := hub.Subscribe("company-1")
	defer unsubA()
	b, unsubB := hub.Subscribe("company-2")
	defer unsubB()

	hub.Publish(Event{TenantID: "company-1", Event: "attendance.recomputed", Data: "e1"})

	assert.Len(t, a, 1)
	assert.Len(t, b, 0)
	ev := <-a
	assert.Equal(t, "attendance.recomputed", ev.Event)
}

func TestHub_FullSubscriberIsSkipped(t *testing.T) {
	hub := NewHub()
	ch, unsubscribe := hub.Subscribe("company-1")
	defer unsubscribe()

	for i := 0; i < cap(ch)+5; i++ {
		hub.Publish(Event{TenantID: "company-1", Event: "payroll.calculated", Data: i})
	}

	assert.Len(t, ch, cap(ch))
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub()
	ch, unsubscribe := hub.Subscribe("company-1")
	assert.Equal(t, 1, hub.SubscriberCount("company-1"))

	unsubscribe()

	assert.Zero(t, hub.SubscriberCount("company-1"))
	_, open := <-ch
	assert.False(t, open)

	var nilHub *Hub
	assert.NotPanics(t, func() { nilHub.Publish(Event{TenantID: "company-1"}) })
}
