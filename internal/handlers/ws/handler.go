package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/partydeck/partydeck/internal/models"
	"github.com/partydeck/partydeck/internal/replica"
	"github.com/partydeck/partydeck/internal/services/presence"
	"github.com/partydeck/partydeck/internal/services/room"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Engine is the command surface plus the per-room background duties the
// bridge starts on behalf of connections
type Engine interface {
	room.Service

	// RunAuthority drives buzz resolution and countdown expiry for a room
	RunAuthority(ctx context.Context, code string) error

	// HandlePresenceChange reacts to a liveness transition
	HandlePresenceChange(ctx context.Context, event models.Event)
}

// Config holds configuration for the websocket bridge
type Config struct {
	// Engine handles commands and background duties
	Engine Engine

	// Hub fans events out to attached connections
	Hub *Hub

	// NewReplica builds the read model for one room
	NewReplica func(code string) (*replica.Replica, error)

	// NewTracker builds the heartbeat writer for one participant
	NewTracker func(code, actorID string, onChange func(models.Event)) (*presence.Tracker, error)

	// CheckOrigin restricts which origins may connect. Nil allows all,
	// for development.
	CheckOrigin func(r *http.Request) bool

	// Logger for connection handling
	Logger zerolog.Logger
}

// Handler upgrades UI connections and bridges JSON commands to the engine
type Handler struct {
	engine     Engine
	hub        *Hub
	newReplica func(code string) (*replica.Replica, error)
	newTracker func(code, actorID string, onChange func(models.Event)) (*presence.Tracker, error)
	upgrader   websocket.Upgrader
	logger     zerolog.Logger
}

// New creates a new websocket handler
func New(cfg *Config) (*Handler, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Engine == nil || cfg.Hub == nil {
		return nil, errors.New("engine and hub cannot be nil")
	}

	if cfg.NewReplica == nil || cfg.NewTracker == nil {
		return nil, errors.New("replica and tracker factories cannot be nil")
	}

	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	return &Handler{
		engine:     cfg.Engine,
		hub:        cfg.Hub,
		newReplica: cfg.NewReplica,
		newTracker: cfg.NewTracker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: cfg.Logger,
	}, nil
}

// client is one UI connection. Each connection follows at most one room at
// a time; attaching to a new room tears down the previous one's goroutines.
type client struct {
	handler *Handler
	conn    *websocket.Conn

	// sendMu orders sends against close: replica and hub callbacks can
	// still be in flight when the read loop tears the connection down
	sendMu sync.Mutex
	send   chan []byte
	closed bool

	code    string
	actorID string
	detach  context.CancelFunc
}

// ServeHTTP upgrades the connection and runs the read loop
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	c := &client{
		handler: h,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
	}

	go c.writePump()
	c.readPump(r.Context())
}

func (c *client) trySend(payload []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- payload:
	default:
		// Slow consumer: drop rather than stall the room
		c.handler.logger.Warn().Str("actor_id", c.actorID).Msg("dropping message to slow connection")
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump(ctx context.Context) {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.handler.logger.Warn().Err(err).Msg("connection closed unexpectedly")
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(payload, &cmd); err != nil {
			c.reply(&Envelope{Type: envelopeError, Error: "malformed command"})
			continue
		}

		c.dispatch(ctx, &cmd)
	}
}

func (c *client) close() {
	if c.detach != nil {
		c.detach()
	}
	if c.code != "" {
		c.handler.hub.unregister(c.code, c)
	}

	// Cancelling the context does not interrupt a callback already inside
	// trySend, so the closed flag and the channel close share the mutex
	c.sendMu.Lock()
	c.closed = true
	close(c.send)
	c.sendMu.Unlock()
}

func (c *client) reply(envelope *Envelope) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		c.handler.logger.Error().Err(err).Msg("failed to marshal envelope")
		return
	}
	c.trySend(payload)
}

func (c *client) result(command string, result interface{}) {
	c.reply(&Envelope{Type: envelopeResult, Command: command, Result: result})
}

func (c *client) fail(command string, err error) {
	c.reply(&Envelope{Type: envelopeError, Command: command, Error: err.Error()})
}

func (c *client) dispatch(ctx context.Context, cmd *Command) {
	engine := c.handler.engine

	switch cmd.Type {
	case CommandCreate:
		var sessionConfig models.SessionConfig
		if cmd.Config != nil {
			sessionConfig = *cmd.Config
		}
		out, err := engine.CreateSession(ctx, &room.CreateSessionInput{
			HostID:   cmd.ActorID,
			HostName: cmd.DisplayName,
			Config:   sessionConfig,
		})
		if err != nil {
			c.fail(cmd.Type, err)
			return
		}
		c.attach(out.Code, out.HostID, true)
		c.result(cmd.Type, out)

	case CommandJoin:
		out, err := engine.JoinSession(ctx, &room.JoinSessionInput{
			Code:        cmd.Code,
			ActorID:     cmd.ActorID,
			DisplayName: cmd.DisplayName,
		})
		if err != nil {
			c.fail(cmd.Type, err)
			return
		}
		c.attach(cmd.Code, out.Participant.ID, false)
		c.result(cmd.Type, out)

	case CommandLeave:
		if err := engine.LeaveSession(ctx, &room.LeaveSessionInput{Code: cmd.Code, ActorID: cmd.ActorID}); err != nil {
			c.fail(cmd.Type, err)
			return
		}
		if c.detach != nil {
			c.detach()
			c.detach = nil
		}
		c.result(cmd.Type, nil)

	case CommandClose:
		if err := engine.CloseSession(ctx, &room.CloseSessionInput{Code: cmd.Code, ActorID: cmd.ActorID, Role: cmd.Role}); err != nil {
			c.fail(cmd.Type, err)
			return
		}
		c.result(cmd.Type, nil)

	case CommandSetTeamCount:
		out, err := engine.SetTeamCount(ctx, &room.SetTeamCountInput{
			Code:    cmd.Code,
			ActorID: cmd.ActorID,
			Role:    cmd.Role,
			Count:   cmd.Count,
		})
		if err != nil {
			c.fail(cmd.Type, err)
			return
		}
		c.result(cmd.Type, out)

	case CommandAssignTeam:
		err := engine.AssignActorToTeam(ctx, &room.AssignActorToTeamInput{
			Code:     cmd.Code,
			ActorID:  cmd.ActorID,
			Role:     cmd.Role,
			TargetID: cmd.TargetID,
			TeamID:   cmd.TeamID,
		})
		if err != nil {
			c.fail(cmd.Type, err)
			return
		}
		c.result(cmd.Type, nil)

	case CommandRenameTeam:
		err := engine.RenameTeam(ctx, &room.RenameTeamInput{
			Code:    cmd.Code,
			ActorID: cmd.ActorID,
			TeamID:  cmd.TeamID,
			Name:    cmd.Name,
		})
		if err != nil {
			c.fail(cmd.Type, err)
			return
		}
		c.result(cmd.Type, nil)

	case CommandSetLocation:
		err := engine.SetLocation(ctx, &room.SetLocationInput{
			Code:     cmd.Code,
			ActorID:  cmd.ActorID,
			Location: cmd.Location,
		})
		if err != nil {
			c.fail(cmd.Type, err)
			return
		}
		c.result(cmd.Type, nil)

	case CommandStartRound:
		out, err := engine.StartRound(ctx, &room.StartRoundInput{
			Code:       cmd.Code,
			ActorID:    cmd.ActorID,
			Role:       cmd.Role,
			DurationMs: cmd.DurationMs,
		})
		if err != nil {
			c.fail(cmd.Type, err)
			return
		}
		c.result(cmd.Type, out)

	case CommandPauseTimer:
		if err := engine.PauseTimer(ctx, &room.TimerCommandInput{Code: cmd.Code, ActorID: cmd.ActorID, Role: cmd.Role}); err != nil {
			c.fail(cmd.Type, err)
			return
		}
		c.result(cmd.Type, nil)

	case CommandResumeTimer:
		if err := engine.ResumeTimer(ctx, &room.TimerCommandInput{Code: cmd.Code, ActorID: cmd.ActorID, Role: cmd.Role}); err != nil {
			c.fail(cmd.Type, err)
			return
		}
		c.result(cmd.Type, nil)

	case CommandBuzz:
		out, err := engine.SubmitBuzz(ctx, &room.SubmitBuzzInput{Code: cmd.Code, ActorID: cmd.ActorID})
		if err != nil {
			c.fail(cmd.Type, err)
			return
		}
		c.result(cmd.Type, out)

	case CommandCorrect:
		out, err := engine.ResolveCorrect(ctx, &room.ResolutionInput{Code: cmd.Code, ActorID: cmd.ActorID, Role: cmd.Role})
		if err != nil {
			c.fail(cmd.Type, err)
			return
		}
		c.result(cmd.Type, out)

	case CommandWrong:
		out, err := engine.ResolveWrong(ctx, &room.ResolutionInput{Code: cmd.Code, ActorID: cmd.ActorID, Role: cmd.Role})
		if err != nil {
			c.fail(cmd.Type, err)
			return
		}
		c.result(cmd.Type, out)

	case CommandCancelBuzz:
		out, err := engine.CancelBuzz(ctx, &room.ResolutionInput{Code: cmd.Code, ActorID: cmd.ActorID, Role: cmd.Role})
		if err != nil {
			c.fail(cmd.Type, err)
			return
		}
		c.result(cmd.Type, out)

	case CommandSkip:
		out, err := engine.Skip(ctx, &room.ResolutionInput{Code: cmd.Code, ActorID: cmd.ActorID, Role: cmd.Role})
		if err != nil {
			c.fail(cmd.Type, err)
			return
		}
		c.result(cmd.Type, out)

	case CommandAdvance:
		out, err := engine.AdvanceRotation(ctx, &room.AdvanceRotationInput{Code: cmd.Code, ActorID: cmd.ActorID, Role: cmd.Role})
		if err != nil {
			c.fail(cmd.Type, err)
			return
		}
		c.result(cmd.Type, out)

	default:
		c.reply(&Envelope{Type: envelopeError, Command: cmd.Type, Error: "unknown command"})
	}
}

// attach starts the per-room goroutines for this connection: the replica
// pushing snapshots, the heartbeat tracker, and the authority loop when
// this connection created the room
func (c *client) attach(code, actorID string, authority bool) {
	if c.detach != nil {
		c.detach()
		c.handler.hub.unregister(c.code, c)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.code = code
	c.actorID = actorID
	c.detach = cancel

	c.handler.hub.register(code, c)

	logger := c.handler.logger.With().Str("code", code).Str("actor_id", actorID).Logger()

	rep, err := c.handler.newReplica(code)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build replica")
		return
	}
	rep.Subscribe(func(snapshot replica.Snapshot) {
		c.reply(&Envelope{Type: envelopeSnapshot, Snapshot: &snapshot})
	})
	go func() {
		err := rep.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, replica.ErrReplicaClosed) {
			logger.Error().Err(err).Msg("replica stopped")
		}
	}()

	tracker, err := c.handler.newTracker(code, actorID, func(event models.Event) {
		c.handler.engine.HandlePresenceChange(ctx, event)
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to build tracker")
		return
	}
	go func() {
		if err := tracker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("tracker stopped")
		}
	}()

	if authority {
		go func() {
			err := c.handler.engine.RunAuthority(ctx, code)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("authority loop stopped")
			}
		}()
	}
}
