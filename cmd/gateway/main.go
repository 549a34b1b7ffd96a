package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/NeuralTrust/QuoteGate/pkg/config"
	"github.com/NeuralTrust/QuoteGate/pkg/dependency_container"
	infraLogger "github.com/NeuralTrust/QuoteGate/pkg/infra/logger"
	"github.com/NeuralTrust/QuoteGate/pkg/server"
	"github.com/NeuralTrust/QuoteGate/pkg/server/router"
	"github.com/NeuralTrust/QuoteGate/pkg/version"
	"github.com/joho/godotenv"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config"
	}
	if err := config.Load(configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.GetConfig()

	logger, closeLogger, err := infraLogger.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	container, err := dependency_container.NewContainer(dependency_container.ContainerDI{
		Cfg:    cfg,
		Logger: logger,
	})
	if err != nil {
		logger.Fatalf("failed to initialize dependencies: %v", err)
	}

	container.MetricsWorker.StartWorkers(cfg.Telemetry.Workers)

	srv := server.NewProxyServer(server.ProxyServerDI{
		Config:  cfg,
		Logger:  logger,
		Routers: []router.ServerRouter{container.ProxyRouter},
	})

	logger.WithField("version", version.Version).
		WithField("upstream", cfg.Upstream.BaseURL).
		Info("starting quote gateway")

	runErr := make(chan error, 1)
	go func() {
		runErr <- srv.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-quit:
		logger.WithField("signal", sig.String()).Info("shutting down server")
		if err := srv.Shutdown(); err != nil {
			logger.WithError(err).Error("error shutting down server")
			exitCode = 1
		}
		<-runErr
	case err := <-runErr:
		if err != nil {
			logger.WithError(err).Error("server failed")
			exitCode = 1
		}
	}

	container.MetricsWorker.Shutdown()
	logger.Info("server gracefully stopped")
	closeLogger()
	os.Exit(exitCode)
}
