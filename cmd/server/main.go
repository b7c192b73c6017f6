// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"chessmatch/internal/auth"
	"chessmatch/internal/cache"
	"chessmatch/internal/database"
	"chessmatch/internal/handlers"
	"chessmatch/internal/middleware"
	"chessmatch/internal/presence"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	sink := connectPresence(logger)
	srv := handlers.NewServer(logger, sink)

	mux := http.NewServeMux()
	mux.Handle("/ws", middleware.RequestLogger(logger)(http.HandlerFunc(
		handlers.WSHandler(srv),
	)))
	mux.Handle("/stats", middleware.RequestLogger(logger)(http.HandlerFunc(
		handlers.StatsHandler(srv),
	)))
	mux.Handle("/health", http.HandlerFunc(handlers.HealthHandler()))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

// connectPresence wires the Postgres + Redis analytics sink. The coordinator
// does not depend on either; if one is unreachable the server runs with the
// no-op sink and only the visitor counters are lost.
func connectPresence(logger *logrus.Logger) presence.Sink {
	db, err := database.Connect(context.Background())
	if err != nil {
		logger.Warnf("postgres unavailable, visitor analytics disabled: %v", err)
		return presence.Noop{}
	}
	if err := database.Migrate(); err != nil {
		logger.Warnf("migrations failed, visitor analytics disabled: %v", err)
		db.Close()
		return presence.Noop{}
	}
	rdb, err := cache.Connect()
	if err != nil {
		logger.Warnf("redis unavailable, visitor analytics disabled: %v", err)
		db.Close()
		return presence.Noop{}
	}
	return presence.NewService(db, rdb, logger)
}
