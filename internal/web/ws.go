package web

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"ThinkChat/internal/chatbot"
	"ThinkChat/internal/render"
	"ThinkChat/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// frame is a server-to-page event
type frame struct {
	Type    string           `json:"type"` // state, warning, message, slot, notice
	Text    string           `json:"text,omitempty"`
	Message *session.Message `json:"message,omitempty"`
	State   *stateResponse   `json:"state,omitempty"`
}

// inbound is a page-to-server event
type inbound struct {
	Type string `json:"type"` // submit
	Text string `json:"text"`
}

// wsView draws a conversation over one websocket
type wsView struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	server *Server
	gone   bool
}

func (v *wsView) send(f frame) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.gone {
		return
	}
	if err := v.conn.WriteJSON(f); err != nil {
		// the render still runs to completion; later frames are dropped
		v.gone = true
		v.server.logger.Debug("websocket write failed", "type", f.Type, "error", err)
	}
}

func (v *wsView) Markup() render.Markup { return render.HTMLMarkup{} }

func (v *wsView) Slot() render.Slot {
	return render.SlotFunc(func(content string) {
		v.send(frame{Type: "slot", Text: content})
	})
}

func (v *wsView) Commit(msg session.Message) {
	v.send(frame{Type: "message", Message: &msg})
}

func (v *wsView) Notice(text string) {
	v.send(frame{Type: "notice", Text: text})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conv := s.conversation(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	view := &wsView{conn: conn, server: s}
	sendState := func() {
		st := s.state(conv)
		view.send(frame{Type: "state", State: &st})
	}

	sendState()
	// a page reload mid-run picks up the remaining work
	s.bot.Advance(ctx, conv, view)
	sendState()

	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		if msg.Type != "submit" {
			s.logger.Debug("ignoring websocket message", "type", msg.Type)
			continue
		}

		res := s.bot.Submit(ctx, conv, msg.Text)
		switch res.Outcome {
		case chatbot.Accepted:
			view.send(frame{Type: "message", Message: &res.Message})
			s.bot.Advance(ctx, conv, view)
		case chatbot.Rejected:
			view.send(frame{Type: "warning", Text: res.Warning})
		}
		sendState()
	}
}
