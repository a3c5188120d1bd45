package chatbot

import (
	"fmt"
	"math"

	"ThinkChat/internal/config"
	"ThinkChat/internal/render"
)

const (
	sliderStep = 0.5
	sliderMax  = 35.0
)

// Settings are the operator panel values for one conversation
type Settings struct {
	Mode         render.Mode `json:"mode"`
	ThinkingTime float64     `json:"thinking_time"` // used by the custom modes
}

// DefaultSettings selects "Thinking (fixed 2s)" when thinking is on by
// default, otherwise "No thinking".
func DefaultSettings(cfg *config.Config) Settings {
	mode := render.ModeNoThinking
	if cfg.ThinkingEnabled {
		mode = render.ModeThinkingFixed
	}
	return Settings{Mode: mode, ThinkingTime: cfg.ThinkingTime}
}

// NewSettings validates a mode and snaps the thinking time onto its slider
func NewSettings(mode render.Mode, thinkingTime float64) (Settings, error) {
	if !validMode(mode) {
		return Settings{}, fmt.Errorf("unknown mode %q", mode)
	}
	if math.IsNaN(thinkingTime) || math.IsInf(thinkingTime, 0) {
		return Settings{}, fmt.Errorf("thinking time must be a finite number of seconds")
	}
	if lo, hi, ok := SliderBounds(mode); ok {
		thinkingTime = Snap(thinkingTime, lo, hi)
	}
	return Settings{Mode: mode, ThinkingTime: thinkingTime}, nil
}

// ModeAt returns the mode at a 1-based panel position
func ModeAt(n int) (render.Mode, bool) {
	if n < 1 || n > len(render.Modes) {
		return "", false
	}
	return render.Modes[n-1], true
}

func validMode(mode render.Mode) bool {
	for _, m := range render.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// SliderBounds returns the thinking-time range for the custom modes
func SliderBounds(mode render.Mode) (lo, hi float64, ok bool) {
	switch mode {
	case render.ModeThinkingCustom:
		return 2.0, sliderMax, true
	case render.ModeNoCues:
		return 0.0, sliderMax, true
	}
	return 0, 0, false
}

// Snap rounds v to the slider step and clamps it to [lo, hi]
func Snap(v, lo, hi float64) float64 {
	v = math.Round(v/sliderStep) * sliderStep
	return math.Min(math.Max(v, lo), hi)
}

// Resolve turns the settings into renderer parameters. Outside dev mode
// the panel does not exist and the configured values apply.
func (s Settings) Resolve(cfg *config.Config) render.Params {
	if !cfg.DevMode {
		return render.Params{
			Duration:        config.Seconds(cfg.ThinkingTime),
			ThinkingEnabled: cfg.ThinkingEnabled,
			Mode:            render.ModeNone,
		}
	}

	p := render.Params{Mode: s.Mode, ThinkingEnabled: s.Mode != render.ModeNoThinking}
	switch s.Mode {
	case render.ModeThinkingFixed:
		p.Duration = config.Seconds(cfg.ThinkingTime)
	case render.ModeThinkingCustom, render.ModeNoCues:
		lo, hi, _ := SliderBounds(s.Mode)
		p.Duration = config.Seconds(Snap(s.ThinkingTime, lo, hi))
	}
	return p
}
