package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"trivia-bot/internal/app"
	"trivia-bot/internal/domain"
)

// defaultChannel scopes rounds started over a socket that did not name a channel.
const defaultChannel = "ws"

type WSHandler struct {
	service  *app.TriviaService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.TriviaService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
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

type startPayload struct {
	Difficulty string `json:"difficulty"`
}

type answerPayload struct {
	SessionID string `json:"sessionId"`
	Index     *int   `json:"index"`
	Label     string `json:"label"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the trivia use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	channelID := r.URL.Query().Get("channelId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}
	if channelID == "" {
		channelID = defaultChannel
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws: upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancelCtx := context.WithCancel(r.Context())
	defer cancelCtx()

	updates, cancel := h.service.Scores().Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	var forwarders sync.WaitGroup

	// push delivers msg unless the connection is closing.
	push := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-closeSignals:
			return false
		}
	}

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Warn("ws: write failed", "user", userID, "error", err)
				cancelCtx()
				// keep draining so producers never block
				for range send {
				}
				return
			}
		}
	}()

	forwarders.Add(1)
	go func() {
		defer forwarders.Done()
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				if len(update.Entries) > app.LeaderboardSize {
					update.Entries = update.Entries[:app.LeaderboardSize]
				}
				if !push(outboundMessage[any]{Type: "leaderboard", Payload: update}) {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// watch reports the end of a round started from this socket.
	watch := func(session *app.Session) {
		forwarders.Add(1)
		go func() {
			defer forwarders.Done()
			select {
			case <-session.Done():
				out, _ := session.Outcome()
				push(outboundMessage[any]{Type: "roundOver", Payload: out})
			case <-closeSignals:
			}
		}()
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
					push(errorMessage("invalid start payload"))
					continue
				}
			}
			session, err := h.service.StartRound(ctx, userID, channelID, payload.Difficulty)
			if err != nil {
				push(errorMessage(domain.UserMessage(err)))
				continue
			}
			push(outboundMessage[any]{Type: "round", Payload: session.View()})
			watch(session)
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || (payload.Index == nil && payload.Label == "") {
				push(errorMessage("invalid answer payload"))
				continue
			}
			choice := domain.AnswerOption{Label: payload.Label}
			if payload.Index != nil {
				choice.Index = *payload.Index
			}
			out, err := h.service.SubmitAnswer(ctx, payload.SessionID, userID, choice)
			if err != nil {
				push(errorMessage(domain.UserMessage(err)))
				continue
			}
			push(outboundMessage[any]{Type: "result", Payload: out})
		case "leaderboard":
			push(outboundMessage[any]{Type: "leaderboard", Payload: h.service.Leaderboard(app.LeaderboardSize)})
		default:
			push(errorMessage("unsupported message type"))
		}
	}

	close(closeSignals)
	forwarders.Wait()
	close(send)
	<-writerDone
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}
