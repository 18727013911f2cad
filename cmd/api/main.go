package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"estimate_recon/pkg/api/comparison"
	"estimate_recon/pkg/core/config"
	"estimate_recon/pkg/core/store"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Engine configuration: defaults, optionally overridden by a
	// config file (yaml or hjson).
	cfg := config.Default()
	if path := os.Getenv("ENGINE_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			fmt.Printf("[WARNING] Failed to load %s: %v\n", path, err)
			fmt.Println("  Falling back to default engine configuration")
		} else {
			cfg = loaded
			fmt.Printf("[CONFIG] Loaded engine configuration from %s\n", path)
		}
	}

	// Persistence is optional: without DATABASE_URL the API still
	// serves comparisons, it just doesn't store them.
	var repo *store.AnalysisRepo
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		if err := store.InitDB(context.Background(), dbURL); err != nil {
			fmt.Printf("[WARNING] Database init failed: %v\n", err)
		} else {
			repo = store.NewAnalysisRepo()
			defer store.Close()
			fmt.Println("[STORE] Analysis persistence enabled")
		}
	}

	comparison.InitHandler(cfg, repo)

	http.HandleFunc("/api/compare", comparison.HandleCompare)
	http.HandleFunc("/api/report", comparison.HandleReport)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	fmt.Printf("[API] Listening on :%s\n", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		fmt.Printf("[FATAL] Server error: %v\n", err)
		os.Exit(1)
	}
}
