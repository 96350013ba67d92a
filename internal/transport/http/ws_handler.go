package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"geolearn-service/internal/app"
	"geolearn-service/internal/domain"
)

// WSHandler drives a quiz attempt over a websocket: the client walks the
// question bank with answer/next/prev/restart messages and receives
// question views, the final result, and leaderboard refreshes.
type WSHandler struct {
	flow     *app.QuizFlow
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(flow *app.QuizFlow, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		flow: flow,
		log:  log,
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
	Index  int    `json:"index"`
	Option string `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// quiz flow. userId and email are optional: anonymous clients can take the
// quiz for feedback and nothing is persisted.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	userID := r.URL.Query().Get("userId")
	email := r.URL.Query().Get("email")
	bankID := r.URL.Query().Get("bankId")
	if sessionID == "" || bankID == "" {
		http.Error(w, "missing sessionId or bankId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	view, err := h.flow.Start(r.Context(), sessionID, email, bankID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.flow.End(r.Context(), sessionID)

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Warn("ws write error", zap.Error(err))
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "question", Payload: view}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			view, err := h.flow.Answer(r.Context(), sessionID, payload.Index, payload.Option)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "question", Payload: view}
		case "next":
			view, completion, err := h.flow.Next(r.Context(), sessionID, userID)
			if err != nil && completion == nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			if completion == nil {
				send <- outboundMessage[any]{Type: "question", Payload: view}
				continue
			}
			send <- outboundMessage[any]{Type: "result", Payload: completion}
			if err != nil {
				// Result computed but the store write failed; the client
				// still gets its feedback plus the failure notice.
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
			if len(completion.Leaderboard) > 0 {
				send <- outboundMessage[any]{Type: "leaderboard", Payload: completion.Leaderboard}
			}
		case "prev":
			view, err := h.flow.Prev(r.Context(), sessionID)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "question", Payload: view}
		case "restart":
			view, err := h.flow.Restart(r.Context(), sessionID)
			if err != nil {
				msg := "cannot restart"
				if errors.Is(err, domain.ErrAttemptInProgress) {
					msg = "quiz still in progress"
				}
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
				continue
			}
			send <- outboundMessage[any]{Type: "question", Payload: view}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(send)
	<-writerDone
}
