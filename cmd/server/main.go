// Server runs the oracle HTTP API and the gRPC health endpoint.
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc/health"

	"moon-oracle/backend/internal/config"
	healthhandler "moon-oracle/backend/internal/health/handler"
	oraclehandler "moon-oracle/backend/internal/oracle/handler"
	oracleservice "moon-oracle/backend/internal/oracle/service"
	"moon-oracle/backend/internal/server"
	"moon-oracle/backend/internal/session/repository"
	sessionservice "moon-oracle/backend/internal/session/service"
	"moon-oracle/backend/internal/telemetry"
	telemetryotel "moon-oracle/backend/internal/telemetry/otel"
	"moon-oracle/backend/internal/telemetry/producer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	repo, err := repository.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer repo.Close()
	log.Printf("server: session store %s, quota %d", cfg.StoreBackend, cfg.SessionQuota)

	emitters := []telemetry.EventEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if kafkaProducer != nil {
		defer kafkaProducer.Close()
		emitters = append(emitters, kafkaProducer)
		log.Printf("server: telemetry to kafka topic %s", kafkaProducer.Topic())
	}
	emitter := telemetry.NewMultiEmitter(emitters...)

	counter := sessionservice.NewCounter(repo, int64(cfg.SessionQuota))
	gate := oracleservice.NewGate(counter, nil, emitter)

	router := server.NewRouter(server.RouterDeps{
		Oracle: oraclehandler.NewHandler(gate),
		Health: healthhandler.NewHandler(repo, healthhandler.StoreInfo{
			Backend:         cfg.StoreBackend,
			DatabaseURLSet:  cfg.DatabaseURL != "",
			DatabaseNameSet: cfg.DatabaseName != "",
			Collections:     []string{repository.CollectionName},
		}),
		Emitter:     emitter,
		CORS:        cfg,
		ServiceName: cfg.ServiceName,
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	healthSrv := health.NewServer()
	go healthhandler.SyncStatus(ctx, repo, healthSrv, healthhandler.DefaultSyncInterval)

	var grpcStop func()
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("listen: %v", err)
		}
		grpcSrv := server.NewGRPCServer(healthSrv)
		go func() {
			log.Printf("gRPC health server listening on %s", cfg.GRPCAddr)
			if err := grpcSrv.Serve(lis); err != nil {
				log.Fatalf("grpc serve: %v", err)
			}
		}()
		grpcStop = func() {
			healthSrv.Shutdown()
			grpcSrv.GracefulStop()
		}
	}

	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if grpcStop != nil {
		grpcStop()
	}

	// Let in-flight async telemetry finish before the providers flush and close.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("server stopped")
}
