package stream

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/eapache/channels"
	"github.com/gobwas/glob"
	"github.com/gorilla/websocket"
	msgpack "github.com/vmihailenco/msgpack"

	"github.com/streamstore/streamstore/utils/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var catalog *Catalog
var send *channels.InfiniteChannel
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Catalog maintains the set of active subscribers
type Catalog struct {
	sync.RWMutex
	subs map[*Subscriber]struct{}
}

// Add a new subscriber to the catalog
func (sc *Catalog) Add(sub *Subscriber) {
	sc.Lock()
	defer sc.Unlock()

	sc.subs[sub] = struct{}{}
}

// Remove a subscriber from the catalog
func (sc *Catalog) Remove(sub *Subscriber) {
	sc.Lock()
	defer sc.Unlock()

	delete(sc.subs, sub)
}

// NewCatalog initializes the stream catalog
func NewCatalog() *Catalog {
	return &Catalog{
		subs: map[*Subscriber]struct{}{},
	}
}

// Subscriber includes the connection, and topic subscriptions to
// manage a given stream client
type Subscriber struct {
	sync.RWMutex
	c      *websocket.Conn
	done   chan struct{}
	topics map[string]struct{}
}

// Subscribed matches the subscriber's topic patterns against the
// supplied topic name.
func (s *Subscriber) Subscribed(topic string) bool {
	s.RLock()
	defer s.RUnlock()
	for pattern := range s.topics {
		if g, err := glob.Compile(pattern); err == nil {
			if g.Match(topic) {
				return true
			}
		}
	}
	return false
}

// SubscribeMessage is an inbound message for the client
// to subscribe to topics by glob pattern
type SubscribeMessage struct {
	Topics []string `msgpack:"topics"`
}

// ErrorMessage is used to report errors when a client
// subscribes to invalid topic patterns
type ErrorMessage struct {
	Error string `msgpack:"error"`
}

func (s *Subscriber) handleOutbound(buf []byte) error {
	// prevents concurrent write to the websocket connection
	s.Lock()
	defer s.Unlock()
	return s.c.WriteMessage(websocket.BinaryMessage, buf)
}

func (s *Subscriber) handleInbound(msg SubscribeMessage) error {
	if len(msg.Topics) > 0 {
		// prevents concurrent read/write of the topic map
		s.Lock()
		defer s.Unlock()

		// validate each pattern before modifying the subscriber's topic map
		m := map[string]struct{}{}
		for _, pattern := range msg.Topics {
			if _, err := glob.Compile(pattern); err != nil {
				return fmt.Errorf("%s is an invalid topic pattern", pattern)
			}
			m[pattern] = struct{}{}
		}
		s.topics = m
	}
	return nil
}

func (s *Subscriber) consume() {
	defer func() {
		catalog.Remove(s)
		s.done <- struct{}{}
	}()

	s.c.SetPongHandler(func(string) error {
		return s.c.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, buf, err := s.c.ReadMessage()

		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Error("unexpected websocket closure (%v)", err)
			}
			return
		}

		switch msgType {
		case websocket.TextMessage:
			fallthrough
		case websocket.BinaryMessage:
			m := SubscribeMessage{}

			if err = msgpack.Unmarshal(buf, &m); err != nil {
				log.Error("failed to unmarshal inbound stream message (%v)", err)
				continue
			}
			if err := s.handleInbound(m); err != nil {
				buf, _ = msgpack.Marshal(ErrorMessage{Error: err.Error()})
			}
			if err := s.handleOutbound(buf); err != nil {
				log.Error("failed to send stream message (%v)", err)
			}
		case websocket.CloseMessage:
			return
		}
	}
}

func (s *Subscriber) produce() {
	ticker := time.NewTicker(pingPeriod)
	for {
		select {
		case <-ticker.C:
			s.Lock()
			s.c.WriteMessage(websocket.PingMessage, []byte{})
			s.Unlock()
		case <-s.done:
			return
		}
	}
}

func stream() {
	for v := range send.Out() {
		if v == nil {
			continue
		}
		payload := v.(Payload)

		buf, err := msgpack.Marshal(payload)
		if err != nil {
			log.Error("failed to marshal outbound stream payload (%v)", err)
			continue
		}

		catalog.RLock()

		for s := range catalog.subs {
			if s.Subscribed(payload.Topic) {
				if err := s.handleOutbound(buf); err != nil {
					log.Error("failed to stream outbound (%s)", err)
				}
			}
		}

		catalog.RUnlock()
	}
}

// Payload is one appended entry sent over the websocket
type Payload struct {
	Topic     string  `msgpack:"topic"`
	Offset    uint64  `msgpack:"offset"`
	Key       *string `msgpack:"key"`
	Data      []byte  `msgpack:"data"`
	Tombstone bool    `msgpack:"tombstone"`
}

// Push sends an appended entry over the stream interface
func Push(p Payload) {
	if send == nil {
		return
	}
	send.In() <- p
}

// Initialize builds the send channel as well as the subscriber
// catalog, and must be called before any data flows over the stream
// interface
func Initialize() {
	send = channels.NewInfiniteChannel()
	catalog = NewCatalog()

	go stream()
}

// Handler hooks into the HTTP interface and handles the incoming
// streaming requests, and upgrades the connection
func Handler(w http.ResponseWriter, r *http.Request) {
	// upgrade the socket
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade stream socket (%s)", err)
		return
	}

	// build the subscriber
	s := &Subscriber{
		c:    ws,
		done: make(chan struct{}),
	}

	if s.c != nil {
		log.Info("new stream listener: %v", ws.RemoteAddr().String())
	}

	catalog.Add(s)

	// begin streaming
	go s.consume()
	go s.produce()
}
