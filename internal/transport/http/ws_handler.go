package http

import (
	"context"
	"encoding/json"
	"net/http"

	"assessment-session-service/internal/app"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type WSHandler struct {
	service  *app.AssessmentService
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHandler(service *app.AssessmentService, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "ws_handler").Logger(),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	QuestionID string `json:"questionId"`
	OptionKey  string `json:"optionKey"`
}

type flagPayload struct {
	QuestionID string `json:"questionId"`
}

type navigatePayload struct {
	Index int `json:"index"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(msg string) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Message: msg}}
}

// toOutbound maps a session event onto its wire message.
func toOutbound(ev app.Event) outboundMessage {
	switch ev.Type {
	case app.EventTick, app.EventWarning:
		return outboundMessage{Type: string(ev.Type), Payload: ev.Clock}
	case app.EventFinished:
		return outboundMessage{Type: string(ev.Type), Payload: ev.Result}
	default:
		return outboundMessage{Type: string(ev.Type), Payload: ev.View}
	}
}

// ServeWS upgrades HTTP requests to websockets and binds them to the live
// session for the requested assessment.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	assessmentID := r.URL.Query().Get("assessmentId")
	if assessmentID == "" {
		http.Error(w, "missing assessmentId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	session, err := h.service.Start(ctx, assessmentID)
	if err != nil {
		h.log.Warn().Err(err).Str("assessment_id", assessmentID).Msg("Session start failed")
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug().Err(err).Str("assessment_id", assessmentID).Msg("WebSocket write failed")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case ev, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- toOutbound(ev):
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if msg, ok := h.handle(ctx, session, inbound); ok {
			send <- msg
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// handle applies one inbound message. Successful mutations reach the client
// through the subscription, so only failures produce a direct reply.
func (h *WSHandler) handle(ctx context.Context, session *app.Session, inbound inboundMessage) (outboundMessage, bool) {
	var err error
	switch inbound.Type {
	case "select":
		var payload selectPayload
		if json.Unmarshal(inbound.Payload, &payload) != nil {
			return errorMessage("invalid select payload"), true
		}
		err = session.SelectAnswer(ctx, payload.QuestionID, payload.OptionKey)
	case "flag":
		var payload flagPayload
		if json.Unmarshal(inbound.Payload, &payload) != nil {
			return errorMessage("invalid flag payload"), true
		}
		err = session.ToggleFlag(ctx, payload.QuestionID)
	case "navigate":
		var payload navigatePayload
		if json.Unmarshal(inbound.Payload, &payload) != nil {
			return errorMessage("invalid navigate payload"), true
		}
		err = session.Navigate(ctx, payload.Index)
	case "requestFinalize":
		err = session.RequestFinalize(ctx)
	case "cancelFinalize":
		err = session.CancelFinalize(ctx)
	case "finalize":
		_, err = session.Finalize(ctx)
	default:
		return errorMessage("unsupported message type"), true
	}
	if err != nil {
		return errorMessage(err.Error()), true
	}
	return outboundMessage{}, false
}
