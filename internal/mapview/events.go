package mapview

import "time"

// EventName identifies a map view event.
type EventName string

// Map view events.
const (
	EventRender        EventName = "render"
	EventAfterRender   EventName = "after-render"
	EventResize        EventName = "resize"
	EventCameraChanged EventName = "camera-changed"
)

// Event is passed to event handlers.
type Event struct {
	Name  EventName
	Frame int
	Time  time.Time
	// Delta is the number of seconds since the previous frame.
	Delta float64
}

// Handler receives map view events on the event loop.
type Handler func(Event)

type handlerEntry struct {
	id int
	fn Handler
}

// On subscribes fn to name and returns an id for Off.
func (v *MapView) On(name EventName, fn Handler) int {
	v.nextHandlerID++
	v.handlers[name] = append(v.handlers[name], handlerEntry{id: v.nextHandlerID, fn: fn})
	return v.nextHandlerID
}

// Off removes a handler registered with On.
func (v *MapView) Off(name EventName, id int) bool {
	list := v.handlers[name]
	for i, h := range list {
		if h.id == id {
			v.handlers[name] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

func (v *MapView) emit(ev Event) {
	for _, h := range v.handlers[ev.Name] {
		h.fn(ev)
	}
}
