package render

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func (c *fakeClock) total() time.Duration {
	var sum time.Duration
	for _, d := range c.sleeps {
		sum += d
	}
	return sum
}

type recordingSlot struct {
	shows []string
}

func (s *recordingSlot) Show(content string) { s.shows = append(s.shows, content) }

func newTestRenderer(clock Clock) *Renderer {
	r := New(HTMLMarkup{}, 2.0)
	r.Clock = clock
	return r
}

const target = "Raw  milk is\tsuperior."

func TestRender_NoCuesNoHeader(t *testing.T) {
	clock := newFakeClock()
	slot := &recordingSlot{}
	r := newTestRenderer(clock)

	got := r.Render(slot, target, Params{Duration: 3 * time.Second, ThinkingEnabled: false, Mode: ModeNoCues})

	if got != "Raw milk is superior. " {
		t.Errorf("Render = %q", got)
	}
	// silent wait, pause, then four words
	want := 3*time.Second + DefaultPause + 4*DefaultWordDelay
	if clock.total() != want {
		t.Errorf("expected %v of sleeping, got %v", want, clock.total())
	}
	if len(slot.shows) != 4 {
		t.Fatalf("expected 4 reveal frames, got %d", len(slot.shows))
	}
	if slot.shows[0] != "Raw " || slot.shows[3] != got {
		t.Errorf("unexpected frames: %q", slot.shows)
	}
}

func TestRender_NoCuesIgnoresThinkingFlag(t *testing.T) {
	clock := newFakeClock()
	slot := &recordingSlot{}
	r := newTestRenderer(clock)

	got := r.Render(slot, "a b", Params{Duration: time.Second, ThinkingEnabled: true, Mode: ModeNoCues})

	if got != "a b " {
		t.Errorf("no-cues must not add a header, got %q", got)
	}
	for _, s := range slot.shows {
		if strings.Contains(s, "Thinking") {
			t.Errorf("no-cues must not pulse, saw %q", s)
		}
	}
}

func TestRender_ParticipantWithoutThinkingWaitsSilently(t *testing.T) {
	clock := newFakeClock()
	r := newTestRenderer(clock)

	got := r.Render(&recordingSlot{}, "hi", Params{Duration: 5 * time.Second, Mode: ModeNone})

	if got != "hi " {
		t.Errorf("Render = %q", got)
	}
	if clock.sleeps[0] != 5*time.Second {
		t.Errorf("expected silent 5s wait first, got %v", clock.sleeps)
	}
}

func TestRender_NoThinkingSkipsWait(t *testing.T) {
	clock := newFakeClock()
	r := newTestRenderer(clock)

	r.Render(&recordingSlot{}, "one two", Params{Duration: 5 * time.Second, Mode: ModeNoThinking})

	want := DefaultPause + 2*DefaultWordDelay
	if clock.total() != want {
		t.Errorf("expected %v of sleeping, got %v", want, clock.total())
	}
}

func TestRender_ThinkingHeader(t *testing.T) {
	clock := newFakeClock()
	slot := &recordingSlot{}
	r := newTestRenderer(clock)
	r.DisplayTime = 12

	got := r.Render(slot, "the full answer", Params{Duration: time.Second, ThinkingEnabled: true, Mode: ModeThinkingFixed})

	header := HTMLMarkup{}.Header(12)
	if !strings.HasPrefix(got, header) {
		t.Fatalf("expected header prefix, got %q", got)
	}
	if !strings.Contains(header, "Thought for 12.0 s") {
		t.Errorf("header does not carry display time: %q", header)
	}
	if strings.TrimPrefix(got, header) != "the full answer " {
		t.Errorf("unexpected body %q", strings.TrimPrefix(got, header))
	}

	pulses := 0
	for _, s := range slot.shows {
		if strings.Contains(s, ">Thinking<") {
			pulses++
			continue
		}
		if !strings.HasPrefix(s, header) {
			t.Errorf("reveal frame lost the header: %q", s)
		}
	}
	if pulses != 10 {
		t.Errorf("expected 10 pulse frames for 1s at 100ms, got %d", pulses)
	}
}

func TestRender_PulseCyclesPalette(t *testing.T) {
	clock := newFakeClock()
	slot := &recordingSlot{}
	r := newTestRenderer(clock)

	r.Render(slot, "", Params{Duration: 1500 * time.Millisecond, ThinkingEnabled: true, Mode: ModeNone})

	if len(slot.shows) != 15 {
		t.Fatalf("expected 15 frames, got %d", len(slot.shows))
	}
	for i, s := range slot.shows {
		want := HTMLMarkup{}.Pulse(Palette[i%len(Palette)])
		if s != want {
			t.Errorf("frame %d = %q, want %q", i, s, want)
		}
	}
}

func TestRender_PulseBoundedByElapsedTime(t *testing.T) {
	clock := newFakeClock()
	slot := &recordingSlot{}
	r := newTestRenderer(clock)
	r.Tick = 400 * time.Millisecond

	r.Render(slot, "", Params{Duration: time.Second, ThinkingEnabled: true, Mode: ModeThinkingCustom})

	// frames at 0, 400 and 800ms; at 1200ms the duration has elapsed
	if len(slot.shows) != 3 {
		t.Errorf("expected 3 frames, got %d", len(slot.shows))
	}
}

func TestRender_ZeroDurationStillHeadersButNoPulse(t *testing.T) {
	clock := newFakeClock()
	slot := &recordingSlot{}
	r := newTestRenderer(clock)

	got := r.Render(slot, "x", Params{ThinkingEnabled: true, Mode: ModeThinkingFixed})

	if len(slot.shows) != 1 {
		t.Errorf("expected only the reveal frame, got %q", slot.shows)
	}
	if !strings.HasPrefix(got, HTMLMarkup{}.Header(2.0)) {
		t.Errorf("expected header, got %q", got)
	}
}

func TestTerminalMarkup(t *testing.T) {
	m := TerminalMarkup{}
	if h := m.Header(3.25); !strings.Contains(h, "Thought for 3.2 s") && !strings.Contains(h, "Thought for 3.3 s") {
		t.Errorf("unexpected header %q", h)
	}
	if !strings.HasSuffix(m.Header(1), "\n") {
		t.Error("terminal header should end its line")
	}
	if !strings.Contains(m.Pulse("#cccccc"), "Thinking") {
		t.Error("pulse should say Thinking")
	}
}

func TestTerminalSlot(t *testing.T) {
	var buf bytes.Buffer
	slot := NewTerminalSlot(&buf)

	slot.Show("Thinking")
	slot.Show("Thinking")
	slot.Show("H\nword ")
	slot.Show("H\nword more ")
	slot.Close()

	want := "\r\033[2KThinking" + "\r\033[2KH\nword " + "more " + "\n"
	if buf.String() != want {
		t.Errorf("terminal output = %q, want %q", buf.String(), want)
	}
}

func TestTerminalSlot_CloseWithoutContent(t *testing.T) {
	var buf bytes.Buffer
	NewTerminalSlot(&buf).Close()
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestSlotFunc(t *testing.T) {
	var got string
	SlotFunc(func(s string) { got = s }).Show("x")
	if got != "x" {
		t.Errorf("SlotFunc did not forward, got %q", got)
	}
}
