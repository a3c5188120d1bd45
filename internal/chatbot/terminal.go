package chatbot

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ThinkChat/internal/render"
	"ThinkChat/internal/session"
)

const title = "Where should we begin?"

// terminalView draws a conversation on a line-oriented terminal
type terminalView struct {
	out  io.Writer
	slot *render.TerminalSlot
}

func (v *terminalView) Markup() render.Markup { return render.TerminalMarkup{} }

func (v *terminalView) Slot() render.Slot {
	fmt.Fprint(v.out, "AI: ")
	v.slot = render.NewTerminalSlot(v.out)
	return v.slot
}

func (v *terminalView) Commit(session.Message) {
	if v.slot != nil {
		v.slot.Close()
		v.slot = nil
	}
	fmt.Fprintln(v.out)
}

func (v *terminalView) Notice(text string) {
	fmt.Fprintf(v.out, "*** %s ***\n\n", text)
}

// Run starts the terminal chat for one conversation, reading lines from
// in until EOF, /quit or ctx is cancelled. An answer already being
// rendered finishes before cancellation is noticed.
func (cb *ChatBot) Run(ctx context.Context, in io.Reader, out io.Writer, sessionID string) error {
	conv := cb.Conversation(sessionID)
	view := &terminalView{out: out}

	fmt.Fprintf(out, "=== %s ===\n", title)
	fmt.Fprintf(out, "Session: %s\n", sessionID)
	if cb.config.DevMode {
		cb.printStatus(conv, out)
	}
	fmt.Fprintln(out, "Type /help for commands, /quit to exit")
	fmt.Fprintln(out)

	// a conversation that was already under way picks up where it stopped
	cb.printHistory(conv, out)
	cb.Advance(ctx, conv, view)

	done := make(chan struct{})
	defer close(done)
	lines, readErr := readLines(in, done)

loop:
	for {
		fmt.Fprint(out, "You: ")

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			break loop
		case line, ok = <-lines:
		}
		if !ok {
			if err := <-readErr; err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			break
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldQuit, err := cb.handleCommand(ctx, conv, input, out)
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				cb.logger.Warn("command error", "command", input, "error", err)
			}
			if shouldQuit {
				break
			}
			continue
		}

		res := cb.Submit(ctx, conv, input)
		switch res.Outcome {
		case Rejected:
			fmt.Fprintf(out, "Warning: %s\n\n", res.Warning)
		case Ignored:
			fmt.Fprintln(out, "The chat is closed.")
		case Accepted:
			fmt.Fprintln(out)
			cb.Advance(ctx, conv, view)
		}
	}

	fmt.Fprintln(out, "Goodbye!")
	return nil
}

// readLines feeds input lines to a channel so the loop can also watch for
// cancellation. The channel closes at EOF, after the scan error is sent.
// A read still blocked on a terminal is abandoned once done closes.
func readLines(in io.Reader, done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}

func (cb *ChatBot) printHistory(conv *Conversation, out io.Writer) {
	snap := cb.Snapshot(conv)
	for _, msg := range snap.Session.Messages {
		label := "You"
		if msg.Role == session.RoleAgent {
			label = "AI"
		}
		fmt.Fprintf(out, "%s: %s\n\n", label, msg.Content)
	}
	if snap.Notice != "" {
		fmt.Fprintf(out, "*** %s ***\n\n", snap.Notice)
	}
}

func (cb *ChatBot) printStatus(conv *Conversation, out io.Writer) {
	snap := cb.Snapshot(conv)
	params := snap.Settings.Resolve(cb.config)
	fmt.Fprintf(out, "State: %s\n", snap.Session.State())
	// participants never see the experiment parameters
	if !cb.config.DevMode {
		return
	}
	fmt.Fprintf(out, "Response mode: %s\n", snap.Settings.Mode)
	fmt.Fprintf(out, "Thinking enabled: %v\n", params.ThinkingEnabled)
	if params.ThinkingEnabled {
		fmt.Fprintf(out, "Thinking time: %v s\n", params.Duration.Seconds())
	}
}

// handleCommand handles special commands
func (cb *ChatBot) handleCommand(ctx context.Context, conv *Conversation, cmd string, out io.Writer) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false, nil
	}

	switch parts[0] {
	case "/quit", "/exit":
		return true, nil

	case "/status":
		cb.printStatus(conv, out)
		return false, nil

	case "/history":
		cb.printHistory(conv, out)
		return false, nil

	case "/reset":
		if err := cb.Reset(ctx, conv); err != nil {
			return false, err
		}
		fmt.Fprintln(out, "Chat history cleared.")
		return false, nil

	case "/mode":
		if !cb.config.DevMode {
			return false, ErrNotDevMode
		}
		if len(parts) < 2 {
			for i, m := range render.Modes {
				fmt.Fprintf(out, "%d. %s\n", i+1, m)
			}
			return false, nil
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return false, fmt.Errorf("usage: /mode <1-%d>", len(render.Modes))
		}
		mode, ok := ModeAt(n)
		if !ok {
			return false, fmt.Errorf("usage: /mode <1-%d>", len(render.Modes))
		}
		current := cb.Snapshot(conv).Settings
		next, err := cb.UpdateSettings(conv, mode, current.ThinkingTime)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(out, "Response mode: %s\n", next.Mode)
		return false, nil

	case "/thinking-time":
		if !cb.config.DevMode {
			return false, ErrNotDevMode
		}
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /thinking-time <seconds>")
		}
		v, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return false, fmt.Errorf("usage: /thinking-time <seconds>")
		}
		current := cb.Snapshot(conv).Settings
		if _, _, ok := SliderBounds(current.Mode); !ok {
			return false, fmt.Errorf("thinking time is fixed in mode %q", current.Mode)
		}
		next, err := cb.UpdateSettings(conv, current.Mode, v)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(out, "Thinking time: %v s\n", next.ThinkingTime)
		return false, nil

	case "/help":
		fmt.Fprintln(out, "Available commands:")
		fmt.Fprintln(out, "  /quit, /exit              - Exit the chat")
		fmt.Fprintln(out, "  /status                   - Show the session state")
		fmt.Fprintln(out, "  /history                  - Show the conversation so far")
		if cb.config.DevMode {
			fmt.Fprintln(out, "  /reset                    - Clear chat history")
			fmt.Fprintln(out, "  /mode [n]                 - List or select the response mode")
			fmt.Fprintln(out, "  /thinking-time <seconds>  - Set the thinking time for custom modes")
		}
		fmt.Fprintln(out, "  /help                     - Show this help message")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command: %s", parts[0])
	}
}
