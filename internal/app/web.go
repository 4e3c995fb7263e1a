// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/bird_logger/internal/config"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // field laptop on the logger's hotspot
	},
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *wsClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// StatusBoard keeps the latest status for the web page and streams every
// update to websocket clients.
type StatusBoard struct {
	mu      sync.RWMutex
	last    Status
	have    bool
	sats    Satellites
	clients map[*wsClient]bool
}

// NewStatusBoard returns an empty board.
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{clients: make(map[*wsClient]bool)}
}

func (b *StatusBoard) PublishStatus(st Status) {
	b.mu.Lock()
	b.last = st
	b.have = true
	b.mu.Unlock()
	b.broadcast(wsMessage{Type: "status", Status: &st})
}

func (b *StatusBoard) PublishSatellites(sat Satellites) {
	b.mu.Lock()
	b.sats = sat
	b.mu.Unlock()
	b.broadcast(wsMessage{Type: "satellites", Satellites: &sat})
}

// Last returns the latest status; ok is false before the first update.
func (b *StatusBoard) Last() (Status, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last, b.have
}

type wsMessage struct {
	Type       string      `json:"type"` // status, satellites
	Status     *Status     `json:"status,omitempty"`
	Satellites *Satellites `json:"satellites,omitempty"`
}

func (b *StatusBoard) broadcast(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("web: marshal: %v", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			log.Printf("web: websocket client too slow, disconnecting")
			delete(b.clients, c)
			close(c.send)
		}
	}
}

func (b *StatusBoard) addClient(conn *websocket.Conn) *wsClient {
	c := &wsClient{conn: conn, send: make(chan []byte, 16)}
	go c.writePump()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[c] = true
	if b.have {
		st := b.last
		if data, err := json.Marshal(wsMessage{Type: "status", Status: &st}); err == nil {
			c.send <- data
		}
	}
	return c
}

func (b *StatusBoard) removeClient(c *wsClient) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.clients[c] {
		delete(b.clients, c)
		close(c.send)
	}
}

// Handler serves GET /api/status and the /ws stream.
func (b *StatusBoard) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		st, ok := b.Last()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(st); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade error: %v", err)
			return
		}
		c := b.addClient(conn)
		// Drain reads until the peer goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				b.removeClient(c)
				return
			}
		}
	})

	return mux
}

// RunStatusWeb serves the board on port until ctx is cancelled.
func RunStatusWeb(ctx context.Context, port int, b *StatusBoard) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           b.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("web: status server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web: %w", err)
	}
	return nil
}

// RunWeb serves the status page away from the logger: it subscribes to the
// status topics and feeds a StatusBoard.
func RunWeb(ctx context.Context, cfg *config.Config) error {
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("web: MQTT_BROKER is not configured")
	}
	port := cfg.StatusWebPort
	if port <= 0 {
		port = 8080
	}

	client, err := ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID+"-web")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	board := NewStatusBoard()
	token := client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var st Status
		if err := json.Unmarshal(msg.Payload(), &st); err != nil {
			log.Printf("web: status unmarshal error: %v", err)
			return
		}
		board.PublishStatus(st)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to %s", cfg.TopicStatus)

	token = client.Subscribe(cfg.TopicSatellites, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var sat Satellites
		if err := json.Unmarshal(msg.Payload(), &sat); err != nil {
			log.Printf("web: satellites unmarshal error: %v", err)
			return
		}
		board.PublishSatellites(sat)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to %s", cfg.TopicSatellites)

	return RunStatusWeb(ctx, port, board)
}
