package main

import (
	"context"
	"log"
	"net/http"

	"github.com/j8n/vending-machine-backend-challenge/internal/config"
	"github.com/j8n/vending-machine-backend-challenge/internal/handler"
	"github.com/j8n/vending-machine-backend-challenge/internal/handler/mw"
	"github.com/j8n/vending-machine-backend-challenge/internal/repository"
	"github.com/j8n/vending-machine-backend-challenge/internal/server"
	"github.com/j8n/vending-machine-backend-challenge/internal/usecase"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	repo, err := repository.NewPostgresRepo(cfg.DSN())
	if err != nil {
		log.Fatalf("failed to init repository: %v", err)
	}
	if err := repo.InitSchema(context.Background()); err != nil {
		log.Fatalf("failed to init schema: %v", err)
	}

	mw.SetSecretKey([]byte(cfg.JWTSecret))

	svc := usecase.NewService(repo)
	h := handler.NewHandler(svc)
	r := server.NewRouter(h)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	server.StartHTTPServer(srv)
}
