package main

import (
	"context"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	logger "github.com/sirupsen/logrus"

	"burnvault/internal/cranker"
	dbconfig "burnvault/pkg/config"
)

func main() {
	os.MkdirAll("logs", 0755)
	file, err := os.OpenFile("logs/crank_task.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err == nil {
		logger.SetOutput(file)
	} else {
		logger.Warn("Failed to open log file, logging to stdout")
	}

	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logger.InfoLevel)

	dbconfig.InitDB()
	logger.Info("> Database connection initialized")

	if os.Getenv("RABBITMQ_HOST") != "" {
		dbconfig.InitRabbitMQ()
		defer func() {
			if dbconfig.RabbitMQ != nil {
				dbconfig.RabbitMQ.Close()
			}
		}()
		logger.Info("> RabbitMQ initialized")
	} else {
		logger.Info("> RabbitMQ not configured, crank events will not be published")
	}

	c := cron.New(cron.WithSeconds())

	// The program enforces the 150s interval on chain; polling every 30s
	// keeps the submission lag small without burning RPC quota
	_, err = c.AddFunc("*/30 * * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		cranker.CrankAll(ctx)
	})
	if err != nil {
		logger.Fatalf("> Failed to add crank job: %v", err)
	}

	_, err = c.AddFunc("0 * * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		cranker.ConfirmPending(ctx)
	})
	if err != nil {
		logger.Fatalf("> Failed to add confirmation job: %v", err)
	}

	logger.Info("> Crank scheduler started")
	c.Start()

	select {}
}
