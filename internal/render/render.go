// Package render animates the thinking cue and reveals an answer word by
// word into a single display slot.
package render

import (
	"strings"
	"time"
)

// Mode is the operator-selected response variant. ModeNone means no
// operator panel is active, which is how participants run.
type Mode string

const (
	ModeNone           Mode = ""
	ModeNoThinking     Mode = "No thinking"
	ModeNoCues         Mode = "No Cues (custom)"
	ModeThinkingFixed  Mode = "Thinking (fixed 2s)"
	ModeThinkingCustom Mode = "Thinking (custom)"
)

// Modes lists the operator choices in panel order
var Modes = []Mode{ModeNoThinking, ModeNoCues, ModeThinkingFixed, ModeThinkingCustom}

// Palette is the gray pulse cycled while thinking
var Palette = []string{
	"#cccccc", "#bfbfbf", "#b3b3b3", "#a6a6a6", "#999999",
	"#8c8c8c", "#808080", "#8c8c8c", "#999999", "#a6a6a6",
	"#b3b3b3", "#bfbfbf",
}

const (
	DefaultTick      = 100 * time.Millisecond
	DefaultPause     = 300 * time.Millisecond
	DefaultWordDelay = 30 * time.Millisecond
)

// Slot is the one place a response is drawn. Every Show replaces what
// the previous Show drew.
type Slot interface {
	Show(content string)
}

// SlotFunc adapts a function to Slot
type SlotFunc func(content string)

func (f SlotFunc) Show(content string) { f(content) }

// Clock abstracts wall time so tests do not sleep
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// RealClock uses time.Now and time.Sleep
var RealClock Clock = realClock{}

// Params are the per-run timing and mode inputs
type Params struct {
	Duration        time.Duration
	ThinkingEnabled bool
	Mode            Mode
}

// Renderer draws responses. DisplayTime is what the thought header
// claims, independent of how long the pulse actually ran.
type Renderer struct {
	Markup      Markup
	Clock       Clock
	DisplayTime float64
	Tick        time.Duration
	Pause       time.Duration
	WordDelay   time.Duration
}

// New returns a renderer with the standard timings
func New(markup Markup, displayTime float64) *Renderer {
	return &Renderer{
		Markup:      markup,
		Clock:       RealClock,
		DisplayTime: displayTime,
		Tick:        DefaultTick,
		Pause:       DefaultPause,
		WordDelay:   DefaultWordDelay,
	}
}

// Render runs the thinking phase and the reveal, and returns the final
// content (header plus revealed text) for the message log. It blocks for
// the whole animation and cannot be interrupted.
func (r *Renderer) Render(slot Slot, target string, p Params) string {
	header := ""

	switch {
	case p.ThinkingEnabled && p.Mode != ModeNoCues:
		r.pulse(slot, p.Duration)
		header = r.Markup.Header(r.DisplayTime)
	case p.Mode == ModeNoCues || p.Mode == ModeNone:
		r.Clock.Sleep(p.Duration)
	}

	r.Clock.Sleep(r.Pause)

	var accumulated strings.Builder
	for _, word := range strings.Fields(target) {
		accumulated.WriteString(word)
		accumulated.WriteString(" ")
		slot.Show(header + accumulated.String())
		r.Clock.Sleep(r.WordDelay)
	}

	return header + accumulated.String()
}

// pulse cycles the palette until d has elapsed
func (r *Renderer) pulse(slot Slot, d time.Duration) {
	start := r.Clock.Now()
	for idx := 0; ; idx++ {
		if r.Clock.Now().Sub(start) >= d {
			return
		}
		slot.Show(r.Markup.Pulse(Palette[idx%len(Palette)]))
		r.Clock.Sleep(r.Tick)
	}
}
