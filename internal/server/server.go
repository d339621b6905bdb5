package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/j8n/vending-machine-backend-challenge/internal/handler"
)

const shutdownTimeout = 10 * time.Second

func NewRouter(h *handler.Handler) chi.Router {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

// StartHTTPServer serves until SIGINT/SIGTERM, then drains in-flight
// requests before returning.
func StartHTTPServer(srv *http.Server) {
	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
