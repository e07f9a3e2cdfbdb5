package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "greenhouse_control/docs"
	"greenhouse_control/internal/config"
	"greenhouse_control/internal/fallback"
	"greenhouse_control/internal/handlers"
	"greenhouse_control/internal/logger"
	"greenhouse_control/internal/messaging"
	"greenhouse_control/internal/mqtt"
	"greenhouse_control/internal/repository"
	"greenhouse_control/internal/repository/db"
	"greenhouse_control/internal/server"
	"greenhouse_control/internal/service"

	"github.com/joho/godotenv"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load("configs")
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(cfg.Log.Level)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalw("invalid timezone", "err", err)
	}

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", cfg.DB.Path)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	repos := repository.NewRepository(sqlDB)

	broker := connectMQTT(cfg.MQTT, repos, log)
	deps := service.Deps{
		Fallback:   newFallback(cfg.Fallback, log),
		Location:   loc,
		SigningKey: cfg.Auth.SigningKey,
		TokenTTL:   cfg.Auth.TokenTTL,
		Log:        log,
	}
	if broker != nil {
		deps.Notifier = broker
		defer broker.Disconnect()
	}
	services := service.NewService(repos, deps)

	messenger := messaging.NewTwilioClient(messaging.TwilioOptions{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		From:       cfg.Twilio.From,
		BaseURL:    cfg.Twilio.BaseURL,
	})
	apiHandler := handlers.NewHandler(services, messenger, log.Named("http"))

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := services.Scheduler.Start(ctx); err != nil {
		log.Fatalw("failed to start scheduler", "err", err)
	}
	startSimulator(ctx, cfg.Simulator, repos, services, log)

	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	waitForShutdown(cancel, srv, services.Scheduler, log)
}

// newFallback returns nil when no API key is configured so unrecognized
// text gets the generic failure reply.
func newFallback(cfg config.FallbackConfig, log *logger.Logger) service.Conversation {
	if cfg.APIKey == "" {
		log.Warnw("fallback api key not set; unrecognized messages get the generic reply")
		return nil
	}
	return fallback.New(fallback.Options{
		BaseURL:       cfg.BaseURL,
		APIKey:        cfg.APIKey,
		Model:         cfg.Model,
		MaxTokens:     cfg.MaxTokens,
		Timeout:       cfg.Timeout,
		RatePerMinute: cfg.RatePerMinute,
	})
}

// connectMQTT returns nil when the bridge is disabled or the connect fails
// outright. A broker that does not answer within the connect timeout does not
// hold up startup: the client is returned and keeps retrying.
// Incoming sensor readings go straight to the state store.
func connectMQTT(cfg config.MQTTConfig, repos *repository.Repository, log *logger.Logger) *mqtt.Client {
	if !cfg.Enabled {
		return nil
	}
	client := mqtt.NewClient(mqtt.Options{
		Broker:           cfg.Broker,
		ClientID:         cfg.ClientID,
		Username:         cfg.Username,
		Password:         cfg.Password,
		TopicPrefix:      cfg.TopicPrefix,
		SubscribeSensors: cfg.SubscribeSensors,
		ConnectTimeout:   cfg.ConnectTimeout,
	}, service.NewSensorService(repos.Store), log)
	err := client.Connect()
	switch {
	case errors.Is(err, mqtt.ErrConnectTimeout):
		log.Warnw("mqtt broker not reachable yet; retrying in background", "err", err, "broker", cfg.Broker)
	case err != nil:
		log.Errorw("mqtt connect failed; continuing without bridge", "err", err, "broker", cfg.Broker)
		client.Disconnect()
		return nil
	}
	return client
}

func startSimulator(ctx context.Context, cfg config.SimulatorConfig, repos *repository.Repository, services *service.Service, log *logger.Logger) {
	if !cfg.Enabled {
		return
	}
	sim := service.NewSimulatorService(repos.Store, services.Devices, services.Sensors, log.Named("simulator"))
	log.Infow("simulator enabled", "tick", cfg.Tick)
	go sim.Run(ctx, cfg.Tick)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		log.Infow("http server listening", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, scheduler service.Scheduler, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()
	scheduler.Stop()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
