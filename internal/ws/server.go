package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"poker-club/internal/broadcast"
	"poker-club/internal/game"
	"poker-club/internal/game/viewmodel"
	"poker-club/internal/session"
)

const (
	commandTimeout = 5 * time.Second
	pingInterval   = 30 * time.Second
	pongWait       = 75 * time.Second
	writeWait      = 10 * time.Second
)

// Tables resolves a table id to its coordinator.
type Tables interface {
	Get(id string) (*session.Coordinator, error)
}

type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	tableID string
	table   *session.Coordinator
	seat    atomic.Int64
	sub     chan broadcast.Event
}

func (c *Client) Seat() int {
	return int(c.seat.Load())
}

type seatKey struct {
	table string
	seat  int
}

// Server is the live-client endpoint. It also reports which seats have a
// connection, which the reconnection schedule uses as presence.
type Server struct {
	Tables   Tables
	hub      *broadcast.Hub
	upgrader websocket.Upgrader

	mu    sync.Mutex
	bound map[seatKey]*Client
}

func NewServer(tables Tables, hub *broadcast.Hub) *Server {
	return &Server{
		Tables:   tables,
		hub:      hub,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		bound:    map[seatKey]*Client{},
	}
}

// Online reports whether a seat has a live connection.
func (s *Server) Online(tableID string, seat int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.bound[seatKey{tableID, seat}]
	return ok
}

// HandleWS serves /ws/tables/{table_id}.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "table_id")
	table, err := s.Tables.Get(tableID)
	if err != nil {
		http.Error(w, session.ErrorCode(err), http.StatusNotFound)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &Client{
		conn:    conn,
		send:    make(chan []byte, 64),
		tableID: tableID,
		table:   table,
		sub:     s.hub.Buffer(tableID).Subscribe(),
	}
	client.seat.Store(-1)
	log.Debug().Str("table_id", tableID).Str("remote", r.RemoteAddr).Msg("ws connected")

	go s.writeLoop(client)
	go s.pump(client)
	s.readLoop(client)
}

func (s *Server) readLoop(c *Client) {
	defer func() {
		s.unregister(c)
		_ = c.conn.Close()
	}()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		s.handle(c, msg)
	}
}

func (s *Server) writeLoop(c *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// pump forwards table events the client's seat may see.
func (s *Server) pump(c *Client) {
	for ev := range c.sub {
		if !ev.VisibleTo(c.Seat()) {
			continue
		}
		msg, err := json.Marshal(EventFrame{Type: "event", ProtocolVersion: ProtocolVersion, Event: ev})
		if err != nil {
			continue
		}
		safeSend(c.send, msg)
	}
}

func (s *Server) handle(c *Client, msg []byte) {
	var req Request
	if err := json.Unmarshal(msg, &req); err != nil {
		c.reply(Result{Type: "result", Command: "unknown", Error: "bad_request"})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	seat := c.Seat()
	var (
		v   viewmodel.TableView
		err error
	)
	switch req.Type {
	case "join":
		if seat >= 0 {
			err = fmt.Errorf("%w: connection already holds seat %d", game.ErrSeatUnavailable, seat)
			break
		}
		if v, err = c.table.Join(ctx, req.Seat, req.PlayerID, req.BuyIn); err == nil {
			s.bind(c, req.Seat)
		}
	case "reconnect":
		if seat < 0 {
			if seat, err = s.claim(ctx, c, req.Token); err != nil {
				break
			}
			s.bind(c, seat)
		}
		v, err = c.table.Reconnect(ctx, seat)
	case "rejoin":
		if seat >= 0 {
			err = fmt.Errorf("%w: connection already holds seat %d", game.ErrSeatUnavailable, seat)
			break
		}
		if v, err = c.table.Rejoin(ctx, req.Token); err == nil {
			s.bind(c, v.ViewerSeat)
		}
	case "cancel_reconnect":
		if seat < 0 {
			if seat, err = s.claim(ctx, c, req.Token); err != nil {
				break
			}
		}
		v, err = c.table.CancelReconnect(ctx, seat)
	case "snapshot":
		v, err = c.table.Snapshot(ctx, seat)
	case "trigger_bomb_pot":
		v, err = c.table.TriggerBombPot(ctx)
	default:
		if seat < 0 {
			err = fmt.Errorf("%w: connection holds no seat", game.ErrSeatUnavailable)
			break
		}
		v, err = s.seated(ctx, c, seat, req)
	}
	res := Result{Type: "result", RequestID: req.RequestID, Command: req.Type, Ok: err == nil}
	if err != nil {
		res.Error = session.ErrorCode(err)
	} else {
		res.State = &v
	}
	c.reply(res)
}

func (s *Server) seated(ctx context.Context, c *Client, seat int, req Request) (viewmodel.TableView, error) {
	switch req.Type {
	case "act":
		kind, err := game.ParseActionKind(req.Action)
		if err != nil {
			return viewmodel.TableView{}, err
		}
		return c.table.Act(ctx, seat, kind, req.Amount, req.TurnID)
	case "use_time_bank":
		return c.table.UseTimeBank(ctx, seat, req.Seconds)
	case "post_straddle":
		return c.table.PostStraddle(ctx, seat, req.Amount)
	case "rabbit_hunt":
		return c.table.RabbitHunt(ctx, seat)
	case "leave":
		v, err := c.table.Leave(ctx, seat)
		if err == nil {
			s.unbind(c)
		}
		return v, err
	}
	return viewmodel.TableView{}, fmt.Errorf("%w: unknown message %q", game.ErrIllegalAction, req.Type)
}

// claim resolves the seat token a fresh connection presents. The public
// player id is never enough to speak for a seat.
func (s *Server) claim(ctx context.Context, c *Client, token string) (int, error) {
	seat, err := c.table.Authorize(ctx, token)
	if err != nil {
		log.Info().Str("table_id", c.tableID).Err(err).Msg("seat claim rejected")
		return -1, err
	}
	return seat, nil
}

func (s *Server) bind(c *Client, seat int) {
	key := seatKey{c.tableID, seat}
	s.mu.Lock()
	old := s.bound[key]
	s.bound[key] = c
	s.mu.Unlock()
	c.seat.Store(int64(seat))
	if old != nil && old != c {
		old.seat.Store(-1)
		_ = old.conn.Close()
	}
}

func (s *Server) unbind(c *Client) bool {
	seat := c.Seat()
	if seat < 0 {
		return false
	}
	c.seat.Store(-1)
	key := seatKey{c.tableID, seat}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound[key] != c {
		return false
	}
	delete(s.bound, key)
	return true
}

// unregister releases the connection. A seated client that drops without
// leaving starts the seat's reconnection schedule.
func (s *Server) unregister(c *Client) {
	seat := c.Seat()
	if s.unbind(c) {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		if _, err := c.table.Disconnect(ctx, seat); err != nil {
			log.Debug().Err(err).Str("table_id", c.tableID).Int("seat", seat).Msg("disconnect after close")
		}
		cancel()
	}
	s.hub.Buffer(c.tableID).Unsubscribe(c.sub)
	safeClose(c.send)
}

func (c *Client) reply(res Result) {
	res.ProtocolVersion = ProtocolVersion
	msg, err := json.Marshal(res)
	if err != nil {
		return
	}
	safeSend(c.send, msg)
}

func safeClose(ch chan []byte) {
	defer func() {
		_ = recover()
	}()
	close(ch)
}

func safeSend(ch chan []byte, msg []byte) {
	defer func() {
		_ = recover()
	}()
	select {
	case ch <- msg:
	default:
	}
}
