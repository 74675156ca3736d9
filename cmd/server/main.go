package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/MigzCtrl/TireOps-sub000/internal/api"
	"github.com/MigzCtrl/TireOps-sub000/internal/extract"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("load .env")
	}

	baseDir, err := os.Getwd()
	if err != nil {
		logrus.Fatalf("determine working directory: %v", err)
	}

	dataDir := filepath.Join(baseDir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logrus.Fatalf("create data directory: %v", err)
	}

	extractCfg := extract.Config{
		BaseURL: strings.TrimSpace(os.Getenv("EXTRACT_SERVICE_URL")),
		APIKey:  strings.TrimSpace(os.Getenv("EXTRACT_SERVICE_KEY")),
	}
	if timeout := os.Getenv("EXTRACT_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			extractCfg.Timeout = d
		}
	}

	cfg := api.Config{
		DBPath:        filepath.Join(dataDir, "tireops.db"),
		ExtractConfig: extractCfg,
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		},
	}

	if override := strings.TrimSpace(os.Getenv("TIREOPS_DB_PATH")); override != "" {
		cfg.DBPath = override
	}
	if origins := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); origins != "" {
		var allowed []string
		for _, origin := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				allowed = append(allowed, trimmed)
			}
		}
		cfg.AllowedOrigins = allowed
	}
	if ttl := os.Getenv("SESSION_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.SessionTTL = d
		}
	}
	if shop := strings.TrimSpace(os.Getenv("DEFAULT_SHOP_ID")); shop != "" {
		if v, err := strconv.ParseUint(shop, 10, 64); err == nil && v > 0 {
			cfg.DefaultShopID = uint(v)
		}
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}

	logrus.Infof("starting tireops backend on :%s", port)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}
