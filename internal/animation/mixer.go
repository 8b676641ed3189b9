// Package animation advances animation clip playback for placed models.
package animation

import (
	"math"
	"time"

	"github.com/woozymasta/geoanchor/internal/scene"
)

// Clip is a named animation with a duration in seconds.
type Clip struct {
	Name     string
	Duration float64
	Channels int
}

// LoopMode controls what happens when an action reaches the end of its clip.
type LoopMode int

// Loop modes.
const (
	LoopRepeat LoopMode = iota
	LoopOnce
	LoopPingPong
)

// Action is the playback state of one clip on a mixer.
type Action struct {
	Clip      Clip
	Loop      LoopMode
	TimeScale float64
	Time      float64
	Weight    float64

	running  bool
	finished bool
	reverse  bool
}

// Play starts or resumes the action.
func (a *Action) Play() *Action {
	a.running = true
	a.finished = false
	return a
}

// Stop halts the action and rewinds it.
func (a *Action) Stop() *Action {
	a.running = false
	a.Time = 0
	a.reverse = false
	return a
}

// IsRunning reports whether the action is advancing.
func (a *Action) IsRunning() bool {
	return a.running
}

// Finished reports whether a LoopOnce action reached the end of its clip.
func (a *Action) Finished() bool {
	return a.finished
}

func (a *Action) advance(delta float64) {
	if !a.running {
		return
	}

	d := a.Clip.Duration
	step := delta * a.TimeScale
	if d <= 0 {
		a.Time = 0
		return
	}

	switch a.Loop {
	case LoopOnce:
		a.Time = math.Max(0, math.Min(d, a.Time+step))
		if a.Time >= d {
			a.running = false
			a.finished = true
		}
	case LoopPingPong:
		// u runs over one forward and one backward pass of the clip
		u := a.Time
		if a.reverse {
			u = 2*d - a.Time
		}
		u = math.Mod(u+step, 2*d)
		if u < 0 {
			u += 2 * d
		}
		a.reverse = u > d
		if a.reverse {
			u = 2*d - u
		}
		a.Time = u
	default:
		a.Time = math.Mod(a.Time+step, d)
		if a.Time < 0 {
			a.Time += d
		}
	}
}

// Mixer drives the actions of one animated root node.
type Mixer struct {
	Root    *scene.Node
	Time    float64
	actions map[string]*Action
	order   []*Action
}

// NewMixer returns a mixer for root.
func NewMixer(root *scene.Node) *Mixer {
	return &Mixer{Root: root, actions: make(map[string]*Action)}
}

// ClipAction returns the action for clip, creating it on first use.
func (m *Mixer) ClipAction(clip Clip) *Action {
	if a, ok := m.actions[clip.Name]; ok {
		return a
	}
	a := &Action{Clip: clip, TimeScale: 1, Weight: 1}
	m.actions[clip.Name] = a
	m.order = append(m.order, a)
	return a
}

// Actions returns the mixer's actions in creation order.
func (m *Mixer) Actions() []*Action {
	return m.order
}

// Update advances all running actions by delta seconds.
func (m *Mixer) Update(delta float64) {
	m.Time += delta
	for _, a := range m.order {
		a.advance(delta)
	}
}

// StopAll stops every action.
func (m *Mixer) StopAll() {
	for _, a := range m.order {
		a.Stop()
	}
}

// Clock measures elapsed time between calls to Delta or Tick. The zero
// value reads no wall time and reports 0 on its first Tick.
type Clock struct {
	now  func() time.Time
	last time.Time
}

// NewClock returns a clock started at the current time.
func NewClock() *Clock {
	return NewClockWith(time.Now)
}

// NewClockWith returns a clock reading time from now.
func NewClockWith(now func() time.Time) *Clock {
	return &Clock{now: now, last: now()}
}

// Delta returns the seconds of wall time elapsed since the previous call.
func (c *Clock) Delta() float64 {
	now := c.now
	if now == nil {
		now = time.Now
	}
	return c.Tick(now())
}

// Tick records t as the current time and returns the seconds elapsed since
// the previous tick.
func (c *Clock) Tick(t time.Time) float64 {
	if c.last.IsZero() {
		c.last = t
		return 0
	}
	d := t.Sub(c.last).Seconds()
	c.last = t
	return d
}
