// foodbridge - surplus food donation coordination service
// Copyright (C) 2026  foodbridge contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/foodbridge-dev/foodbridge/config"
	"github.com/foodbridge-dev/foodbridge/internal/analytics"
	"github.com/foodbridge-dev/foodbridge/internal/database"
	"github.com/foodbridge-dev/foodbridge/internal/handlers"
	"github.com/foodbridge-dev/foodbridge/internal/query"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("foodbridge %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", buildDate)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	sandbox := query.New(db, cfg.QueryTimeout)
	svc := analytics.New(db, sandbox)
	h := handlers.New(db, sandbox, svc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Claim lifecycle
	r.Post("/claims", h.CreateClaim)
	r.Get("/claims", h.ListClaims)
	r.Post("/claims/{claim_id}/status", h.UpdateClaimStatus)

	// Analytics surface
	r.Route("/analytics", func(r chi.Router) {
		r.Post("/query", h.CustomQuery)
		r.Get("/query-suggestions", h.QuerySuggestions)
		r.Get("/reports", h.Reports)
	})

	// Registration and read API
	r.Route("/api", func(r chi.Router) {
		r.Post("/providers", h.CreateProvider)
		r.Get("/providers", h.ListProviders)
		r.Post("/receivers", h.CreateReceiver)
		r.Get("/receivers", h.ListReceivers)
		r.Post("/food-listings", h.CreateListing)
		r.Get("/food-listings", h.ListListings)
		r.Get("/urgent-food", h.UrgentFood)
		r.Get("/dashboard-stats", h.DashboardStats)
		r.Get("/stats", h.Overview)
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("foodbridge starting on %s", addr)

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped")
}
