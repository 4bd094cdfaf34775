package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/auth"
	"quiz-battle-service/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const presenceTimeout = 5 * time.Second

type WSHandler struct {
	service  *app.MatchService
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler accepts any origin when allowedOrigins is empty.
func NewWSHandler(service *app.MatchService, logger *slog.Logger, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WSHandler{
		service: service,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type matchPayload struct {
	DisplayName   string `json:"displayName"`
	Difficulty    string `json:"difficulty"`
	QuestionCount int    `json:"questionCount"`
}

type joinPayload struct {
	// Room is a room id or a join code.
	Room        string `json:"room"`
	DisplayName string `json:"displayName"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type answerPayload struct {
	RoomID        string `json:"roomId"`
	QuestionIndex int    `json:"questionIndex"`
	Selected      string `json:"selected"`
	TimeSpentMs   int64  `json:"timeSpentMs"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades an authenticated request and serves the PvP message protocol.
func (h *WSHandler) ServeWS(c *gin.Context) {
	identity, ok := auth.UserFromContext(c.Request.Context())
	if !ok {
		jsonError(c, http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "user", identity.UserID, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	s := &wsSession{
		service:    h.service,
		log:        h.log.With("user", identity.UserID),
		ctx:        ctx,
		identity:   identity,
		send:       make(chan outboundMessage[any], 16),
		closing:    make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	s.serve(conn)
}

// wsSession is one connection. Only the writer goroutine touches the socket for writes.
type wsSession struct {
	service  *app.MatchService
	log      *slog.Logger
	ctx      context.Context
	identity auth.Identity

	send       chan outboundMessage[any]
	closing    chan struct{}
	writerDone chan struct{}

	watchers  sync.WaitGroup
	roomID    string
	stopWatch func()
}

func (s *wsSession) serve(conn *websocket.Conn) {
	go func() {
		defer close(s.writerDone)
		for msg := range s.send {
			if err := conn.WriteJSON(msg); err != nil {
				s.log.Debug("ws write error", "error", err)
				_ = conn.Close()
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		s.handle(inbound)
	}

	close(s.closing)
	s.unwatch()
	s.watchers.Wait()
	close(s.send)
	<-s.writerDone
	s.markOffline()
}

func (s *wsSession) handle(inbound inboundMessage) {
	userID := s.identity.UserID
	switch inbound.Type {
	case "quickMatch", "createRoom":
		var p matchPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			s.fail("invalid " + inbound.Type + " payload")
			return
		}
		name := s.displayName(p.DisplayName)
		var (
			room domain.Room
			err  error
		)
		if inbound.Type == "quickMatch" {
			room, err = s.service.FindQuickMatch(s.ctx, userID, name, p.Difficulty, p.QuestionCount)
		} else {
			room, err = s.service.CreateRoom(s.ctx, userID, name, p.Difficulty, p.QuestionCount)
		}
		s.enterRoom(room, err)

	case "joinRoom":
		var p joinPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil || p.Room == "" {
			s.fail("invalid joinRoom payload")
			return
		}
		room, err := s.service.JoinRoom(s.ctx, p.Room, userID, s.displayName(p.DisplayName))
		s.enterRoom(room, err)

	case "leaveRoom":
		var p roomPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil || p.RoomID == "" {
			s.fail("invalid leaveRoom payload")
			return
		}
		if p.RoomID == s.roomID {
			s.unwatch()
		}
		if err := s.service.LeaveRoom(s.ctx, p.RoomID, userID); err != nil {
			s.failErr(err)
		}

	case "watch":
		var p roomPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil || p.RoomID == "" {
			s.fail("invalid watch payload")
			return
		}
		if err := s.watch(p.RoomID); err != nil {
			s.failErr(err)
			return
		}
		// Reconnecting players come back online.
		if err := s.service.SetPresence(s.ctx, p.RoomID, userID, true); err != nil {
			s.log.Warn("set presence", "room", p.RoomID, "error", err)
		}

	case "answer":
		var p answerPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil || p.RoomID == "" {
			s.fail("invalid answer payload")
			return
		}
		outcome, err := s.service.SubmitAnswer(s.ctx, p.RoomID, userID, p.QuestionIndex, p.Selected, p.TimeSpentMs)
		if err != nil {
			s.failErr(err)
			return
		}
		s.emit("answerResult", outcome)

	default:
		s.fail("unsupported message type")
	}
}

func (s *wsSession) enterRoom(room domain.Room, err error) {
	if err != nil {
		s.failErr(err)
		return
	}
	s.emit("room", roomView(room, s.identity.UserID))
	if err := s.watch(room.ID); err != nil {
		s.failErr(err)
	}
}

// watch replaces the current subscription. Snapshots go out as "room" messages and
// status changes as "status" messages.
func (s *wsSession) watch(roomID string) error {
	if s.stopWatch != nil && s.roomID == roomID {
		return nil
	}
	snapshots, stopSnapshots, err := s.service.Watch(s.ctx, roomID)
	if err != nil {
		return err
	}
	transitions, stopTransitions, err := s.service.WatchTransitions(s.ctx, roomID)
	if err != nil {
		stopSnapshots()
		return err
	}
	s.unwatch()

	done := make(chan struct{})
	var once sync.Once
	s.roomID = roomID
	s.stopWatch = func() {
		once.Do(func() {
			close(done)
			stopSnapshots()
			stopTransitions()
		})
	}

	s.watchers.Add(2)
	go func() {
		defer s.watchers.Done()
		for {
			select {
			case room, ok := <-snapshots:
				if !ok {
					return
				}
				s.emitUntil(done, "room", roomView(room, s.identity.UserID))
			case <-done:
				return
			}
		}
	}()
	go func() {
		defer s.watchers.Done()
		for {
			select {
			case tr, ok := <-transitions:
				if !ok {
					return
				}
				s.emitUntil(done, "status", tr)
			case <-done:
				return
			}
		}
	}()
	return nil
}

func (s *wsSession) unwatch() {
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
}

func (s *wsSession) markOffline() {
	if s.roomID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(auth.WithUser(context.Background(), s.identity), presenceTimeout)
	defer cancel()
	if err := s.service.SetPresence(ctx, s.roomID, s.identity.UserID, false); err != nil {
		s.log.Warn("mark offline", "room", s.roomID, "error", err)
	}
}

func (s *wsSession) displayName(requested string) string {
	if requested != "" {
		return requested
	}
	if s.identity.Name != "" {
		return s.identity.Name
	}
	return s.identity.UserID
}

func (s *wsSession) emit(typ string, payload any) {
	s.emitUntil(nil, typ, payload)
}

func (s *wsSession) emitUntil(done <-chan struct{}, typ string, payload any) {
	select {
	case s.send <- outboundMessage[any]{Type: typ, Payload: payload}:
	case <-done:
	case <-s.closing:
	case <-s.writerDone:
	}
}

func (s *wsSession) fail(message string) {
	s.emit("error", errorPayload{Message: message})
}

func (s *wsSession) failErr(err error) {
	if statusFor(err) >= http.StatusInternalServerError {
		s.log.Error("ws request failed", "room", s.roomID, "error", err)
	}
	s.fail(clientMessage(err))
}
