// internal/handlers/server.go
package handlers

import (
	"github.com/sirupsen/logrus"

	"chessmatch/internal/conn"
	"chessmatch/internal/matchmaking"
	"chessmatch/internal/presence"
	"chessmatch/internal/relay"
	"chessmatch/internal/room"
)

// Server bundles the coordination core behind the WebSocket and HTTP
// handlers: registry, room store, matchmaking queue, relay, and the
// presence collaborator.
type Server struct {
	Registry *conn.Registry
	Rooms    *room.Store
	Queue    *matchmaking.Queue
	Relay    *relay.Relay
	Presence presence.Sink
	Logger   *logrus.Logger
}

func NewServer(logger *logrus.Logger, sink presence.Sink) *Server {
	registry := conn.NewRegistry()
	rooms := room.NewStore(registry, logger)
	return &Server{
		Registry: registry,
		Rooms:    rooms,
		Queue:    matchmaking.NewQueue(rooms, registry, logger),
		Relay:    relay.New(rooms, logger),
		Presence: sink,
		Logger:   logger,
	}
}
