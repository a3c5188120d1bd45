package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Markup formats the thinking cue and thought header for one front end
type Markup interface {
	Pulse(color string) string
	Header(seconds float64) string
}

// HTMLMarkup renders for the browser page
type HTMLMarkup struct{}

func (HTMLMarkup) Pulse(color string) string {
	return fmt.Sprintf("<span style='color:%s; font-style:italic;'>Thinking</span>", color)
}

func (HTMLMarkup) Header(seconds float64) string {
	return fmt.Sprintf("<div style='color:#999; font-style:italic; margin-bottom:10px;'>Thought for %.1f s</div>", seconds)
}

// TerminalMarkup renders with lipgloss styles
type TerminalMarkup struct{}

var headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999")).Italic(true)

func (TerminalMarkup) Pulse(color string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Italic(true).Render("Thinking")
}

func (TerminalMarkup) Header(seconds float64) string {
	return headerStyle.Render(fmt.Sprintf("Thought for %.1f s", seconds)) + "\n"
}

// TerminalSlot draws a slot on a terminal. Content that extends what is
// already on screen is appended; anything else redraws the current line.
type TerminalSlot struct {
	w    io.Writer
	last string
}

// NewTerminalSlot returns a slot writing to w
func NewTerminalSlot(w io.Writer) *TerminalSlot {
	return &TerminalSlot{w: w}
}

func (s *TerminalSlot) Show(content string) {
	if s.last != "" && strings.HasPrefix(content, s.last) {
		io.WriteString(s.w, content[len(s.last):])
	} else {
		io.WriteString(s.w, "\r\033[2K"+content)
	}
	s.last = content
}

// Close ends the slot's line
func (s *TerminalSlot) Close() {
	if s.last != "" {
		io.WriteString(s.w, "\n")
	}
}
