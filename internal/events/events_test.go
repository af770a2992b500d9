package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishByType(t *testing.T) {
	b := NewBus()
	var got []Event
	b.Subscribe(TypeAppointmentAction, func(e Event) { got = append(got, e) })

	b.Publish(Event{Type: TypeAppointmentAction, AppointmentID: 1, Action: "confirm"})
	b.Publish(Event{Type: TypeRescheduleDecision, RequestID: 2})
	b.Publish(Event{Type: TypeAppointmentAction, AppointmentID: 3, Action: "cancel", Err: errors.New("boom")})

	if assert.Len(t, got, 2) {
		assert.True(t, got[0].Succeeded())
		assert.False(t, got[0].CreatedAt.IsZero())
		assert.False(t, got[1].Succeeded())
		assert.Equal(t, int64(3), got[1].AppointmentID)
	}
}

func TestBus_NilIsNoop(t *testing.T) {
	var b *Bus
	assert.NotPanics(t, func() { b.Publish(Event{Type: TypeAppointmentAction}) })
}
