package mapview

import "time"

// Stats tracks frame timing, like an fps meter.
type Stats struct {
	Frames      int     `json:"frames"`
	FPS         float64 `json:"fps"`
	LastFrameMs float64 `json:"last_frame_ms"`
	AvgFrameMs  float64 `json:"avg_frame_ms"`

	windowStart  time.Time
	windowFrames int
	totalMs      float64
}

func (s *Stats) record(now time.Time, frameTime time.Duration) {
	ms := float64(frameTime) / float64(time.Millisecond)
	s.Frames++
	s.LastFrameMs = ms
	s.totalMs += ms
	s.AvgFrameMs = s.totalMs / float64(s.Frames)

	if s.windowStart.IsZero() {
		s.windowStart = now
	}
	s.windowFrames++
	if elapsed := now.Sub(s.windowStart); elapsed >= time.Second {
		s.FPS = float64(s.windowFrames) / elapsed.Seconds()
		s.windowStart = now
		s.windowFrames = 0
	}
}
