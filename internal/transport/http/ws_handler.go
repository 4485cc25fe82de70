package http

import (
	"encoding/json"
	"log"
	"net/http"

	"exam-simulator/internal/app"
	"exam-simulator/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.ExamService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.ExamService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Letter     string `json:"letter"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type markPayload struct {
	QuestionID string `json:"questionId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the exam
// session use cases. A connection drives exactly one session: either a fresh
// one (the client sends "start" with its configuration) or a resumed one
// (the sessionId query parameter names an existing session).
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})
	subscribed := false

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// subscribeSession forwards session events to the writer until the
	// connection winds down.
	subscribeSession := func() bool {
		updates, cancel, err := h.service.Subscribe(sessionID)
		if err != nil {
			send <- errMsg(err)
			return false
		}
		subscribed = true
		go func() {
			defer close(updatesDone)
			defer cancel()
			for {
				select {
				case ev, ok := <-updates:
					if !ok {
						return
					}
					select {
					case send <- eventMsg(ev):
					case <-closeSignals:
						return
					}
				case <-closeSignals:
					return
				}
			}
		}()
		return true
	}

	// Resume up front when the client reconnects with a known session.
	if r.URL.Query().Get("sessionId") != "" {
		if _, err := h.service.Resume(r.Context(), sessionID); err != nil {
			send <- errMsg(err)
		} else {
			subscribeSession()
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var cfg domain.SessionConfig
			if err := json.Unmarshal(inbound.Payload, &cfg); err != nil {
				send <- errText("invalid start payload")
				continue
			}
			view, err := h.service.Start(r.Context(), sessionID, cfg)
			if err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "session", Payload: view}
			if !subscribed {
				subscribeSession()
			}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errText("invalid answer payload")
				continue
			}
			feedback, view, err := h.service.Answer(r.Context(), sessionID, payload.QuestionID, payload.Letter)
			if err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "session", Payload: view}
			if view.Mode == domain.ModeStudy {
				send <- outboundMessage[any]{Type: "feedback", Payload: feedback}
			}
		case "goto":
			var payload gotoPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errText("invalid goto payload")
				continue
			}
			view, err := h.service.GoTo(r.Context(), sessionID, payload.Index)
			if err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "session", Payload: view}
		case "next":
			view, offerComplete, err := h.service.Next(r.Context(), sessionID)
			if err != nil {
				send <- errMsg(err)
				continue
			}
			if offerComplete {
				send <- outboundMessage[any]{Type: "offerComplete", Payload: view}
				continue
			}
			send <- outboundMessage[any]{Type: "session", Payload: view}
		case "previous":
			view, err := h.service.Previous(r.Context(), sessionID)
			if err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "session", Payload: view}
		case "mark":
			var payload markPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errText("invalid mark payload")
				continue
			}
			view, err := h.service.Mark(r.Context(), sessionID, payload.QuestionID)
			if err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "session", Payload: view}
		case "complete":
			result, err := h.service.Complete(r.Context(), sessionID)
			if err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "result", Payload: result}
		case "export":
			export, err := h.service.Export(r.Context(), sessionID)
			if err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "export", Payload: export}
		default:
			send <- errText("unsupported message type")
		}
	}

	close(closeSignals)
	if subscribed {
		<-updatesDone
	}
	close(send)
	<-writerDone
	h.service.Teardown(sessionID)
}

func eventMsg(ev app.Event) outboundMessage[any] {
	switch ev.Type {
	case app.EventTime:
		return outboundMessage[any]{Type: "time", Payload: ev.RemainingSeconds}
	case app.EventCompleted:
		return outboundMessage[any]{Type: "completed", Payload: ev.Result}
	default:
		return outboundMessage[any]{Type: "session", Payload: ev.View}
	}
}

func errMsg(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}

func errText(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}
