package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"cost-forecast-engine/api"
	"cost-forecast-engine/config"
	"cost-forecast-engine/forecast"
	"cost-forecast-engine/metrics"
	"cost-forecast-engine/store"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON configuration file")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(os.Getenv("FCENGINE_LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}

	log.Info("starting cost forecast engine")

	configManager, err := config.NewConfigManager(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	cfg := configManager.GetConfig()

	collector := metrics.NewCollector()

	// Build the forecast engine; backend availability is probed once here.
	engineCfg := forecast.DefaultConfig()
	engineCfg.MinDataPoints = cfg.Forecast.MinDataPoints
	engineCfg.Workers = cfg.Forecast.Workers
	engineCfg.Backends = forecast.BackendConfig{
		EnableARIMA:         cfg.Backends.ARIMA,
		EnableSARIMA:        cfg.Backends.SARIMA,
		EnableProphet:       cfg.Backends.Prophet,
		EnableNeuralProphet: cfg.Backends.NeuralProphet,
		EnableDarts:         cfg.Backends.Darts,
	}
	engine := forecast.NewEngine(engineCfg, log, collector)
	for _, id := range forecast.AllBackends {
		log.WithFields(logrus.Fields{
			"backend":   id,
			"available": engine.Registry().Available(id),
		}).Info("backend probed")
	}

	seriesStore := store.NewStore(0, 0)

	var cache store.ForecastCache
	if cfg.Redis.Enabled {
		redisCache, err := store.NewRedisCache(context.Background(),
			cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CacheTTL.Duration)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer redisCache.Close()
		cache = redisCache
		log.WithField("addr", cfg.Redis.Addr).Info("redis forecast cache enabled")
	} else {
		cache = store.NewMemoryCache(cfg.Redis.CacheTTL.Duration)
		log.Info("in-memory forecast cache enabled")
	}

	apiServer := api.NewServer(cfg, seriesStore, cache, engine, log, collector, collector.Handler())

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      apiServer,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}

	go func() {
		log.WithField("addr", cfg.Server.Port).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server forced to shutdown")
	}
	log.Info("server stopped")
}
