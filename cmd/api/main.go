package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mindforge/internal/artifact"
	"mindforge/internal/config"
	"mindforge/internal/credentials"
	"mindforge/internal/engine"
	"mindforge/internal/prompt"
	"mindforge/internal/provider"
	"mindforge/internal/server"
	"mindforge/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var store storage.Store
	if cfg.PostgresDSN != "" {
		pg, err := storage.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open postgres store: %v", err)
		}
		defer pg.Close()
		store = pg
		log.Printf("using postgres store")
	} else {
		store = storage.NewMemoryStore()
		log.Printf("using in-memory store")
	}

	var artifacts artifact.Store = artifact.NewMemoryStore()
	if cfg.Artifact.Enabled {
		s3, err := artifact.NewS3Store(artifact.S3Config{
			Endpoint:  cfg.Artifact.Endpoint,
			Region:    cfg.Artifact.Region,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			UseSSL:    cfg.Artifact.UseSSL,
		})
		if err != nil {
			log.Fatalf("open artifact store: %v", err)
		}
		artifacts = s3
		log.Printf("archiving generation artifacts to s3 bucket %s", cfg.Artifact.Bucket)
	}

	registry := provider.NewRegistry(time.Now)
	eng := engine.New(store, credentials.NewEnvSource(), registry, prompt.NewEngine(),
		engine.WithArtifacts(artifacts),
		engine.WithDefaultProvider(cfg.DefaultProvider),
	)

	srv := server.New(cfg.Port, server.NewMux(server.NewHandler(eng)))

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
