package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"eqrender/internal/api"
	"eqrender/internal/execx"
	"eqrender/internal/latex"
	"eqrender/internal/latex/compiler"
	"eqrender/internal/latex/render"
	"eqrender/internal/objstore"
	"eqrender/internal/store"
)

func init() {
	if err := godotenv.Load("config/.env"); err != nil {
		log.Println("No .env file found, relying on system env vars")
	}
}

func main() {
	cfg := latex.LoadConfig()

	if err := store.Init(); err != nil {
		log.Fatalf("init render history: %v", err)
	}

	objects, err := objstore.NewFromEnv(context.Background())
	if err != nil {
		log.Fatalf("init object store: %v", err)
	}

	renderer := &render.Renderer{
		Pipeline:     compiler.New(execx.New()),
		Objects:      objects,
		CleanupAfter: cfg.CleanupAfter,
	}
	latex.StartWorkerPool(cfg.WorkerPoolSize, renderer)

	h := &api.Handler{
		Queue:     latex.JobQueue,
		TokenHash: os.Getenv("EQRENDER_TOKEN_HASH"),
		Objects:   objects,
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/equations", h.PostEquation).Methods("POST")
	r.HandleFunc("/api/equations/{jobId}/status", h.GetEquationStatus).Methods("GET")
	r.HandleFunc("/api/equations/{jobId}/pdf", h.GetEquationPDF).Methods("GET")
	r.HandleFunc("/api/equations/{jobId}/png", h.GetEquationPNG).Methods("GET")
	r.HandleFunc("/api/equations/{jobId}/logs", h.GetEquationLogs).Methods("GET")
	r.HandleFunc("/healthz", api.Healthz).Methods("GET")

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	addr := os.Getenv("EQRENDER_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: corsHandler(r),
	}
	log.Printf("Starting server on %s", addr)
	log.Fatal(srv.ListenAndServe())
}
