package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/abhivicks22/stockpulse/datastreams"
	"github.com/abhivicks22/stockpulse/httpapi"
	"github.com/abhivicks22/stockpulse/models"
	"github.com/abhivicks22/stockpulse/quotes"
	"github.com/abhivicks22/stockpulse/scheduler"
	"github.com/abhivicks22/stockpulse/sentiment"
	"github.com/abhivicks22/stockpulse/session"
	"github.com/abhivicks22/stockpulse/socketapi"
	"github.com/abhivicks22/stockpulse/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configFile := flag.String("config", "config.yaml", "Path of the config file (json or yaml)")
	runOnStart := flag.Bool("tick-on-start", true, "Refresh the market ticker once before serving")
	flag.Parse()

	if err := utils.InitConfiguration(*configFile); err != nil {
		log.Fatalf("Failed to load configuration: %+v", err)
	}
	config := utils.GetConfiguration()

	if err := utils.Init(config); err != nil {
		log.Fatalf("Failed to initialize utils: %+v", err)
	}
	logger := utils.Logger.WithFields(logrus.Fields{
		"module": "main",
	})

	if err := models.Init(config); err != nil {
		logger.Fatalf("Failed to initialize models: %+v", err)
	}
	if err := session.Init(config); err != nil {
		logger.Fatalf("Failed to initialize sessions: %+v", err)
	}
	datastreams.Init(config)
	socketapi.Init(config)

	quoteService := quotes.NewServiceFromConfig(config)
	estimator := sentiment.NewEstimatorFromConfig(config)
	dsm := datastreams.GetManager()

	httpapi.Init(config, quoteService, estimator, dsm)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go dsm.GetQuotesStream().Run(ctx)

	sched := scheduler.NewScheduler(quoteService, dsm.GetQuotesStream(), time.Duration(config.HttpTimeoutSeconds)*time.Second)
	if err := sched.RegisterAll(config.TickerCron); err != nil {
		logger.Fatalf("Failed to register cron tasks: %+v", err)
	}
	if *runOnStart {
		go sched.RunTickerNow()
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:              config.ServerPort,
		Handler:           httpapi.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Serving on %s", config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %+v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Infof("Got %s. Shutting down", sig)
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %+v", err)
	}
	logger.Infof("Stopped")
}
