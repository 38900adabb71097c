package main

import (
	"encoding/json"
	"log"
	"sync"

	logrus "github.com/sirupsen/logrus"

	"burnvault/internal/cranker"
	"burnvault/internal/models"
	"burnvault/pkg/config"
	bvsolana "burnvault/pkg/solana"
)

const (
	maxErrorCount = 3 // Maximum consecutive errors before giving up on an address
)

var (
	// errorCounts tracks error count per state address
	errorCounts   = make(map[string]int)
	errorCountsMu sync.RWMutex
)

func main() {
	// Initialize logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	// Initialize database
	config.InitDB()

	// Initialize RabbitMQ
	config.InitRabbitMQ()
	defer config.RabbitMQ.Close()

	// Create vault state monitor
	monitor, err := bvsolana.NewVaultMonitor()
	if err != nil {
		logrus.Fatal("Failed to create vault monitor: ", err)
	}

	// Consume crank requests in the background
	crankConsumer, err := config.NewConsumer(config.QueueVaultCrank)
	if err != nil {
		logrus.Fatal("Failed to create crank consumer: ", err)
	}
	defer crankConsumer.Close()

	go func() {
		err := crankConsumer.Consume(func(msg []byte) error {
			logrus.Infof("Received crank request: %s", string(msg))
			if err := cranker.HandleCrankMessage(msg); err != nil {
				logrus.Errorf("Crank request failed: %v", err)
				return err
			}
			return nil
		})
		if err != nil {
			logrus.Fatal("Failed to start crank consumer: ", err)
		}
	}()

	// Create consumer for monitor control queue
	monitorConsumer, err := config.NewConsumer(config.QueueVaultMonitor)
	if err != nil {
		logrus.Fatal("Failed to create monitor consumer: ", err)
	}
	defer monitorConsumer.Close()

	logrus.Info("Vault worker started, waiting for messages...")

	// Start consuming messages
	err = monitorConsumer.Consume(func(msg []byte) error {
		var monitorMsg bvsolana.MonitorRequest
		if err := json.Unmarshal(msg, &monitorMsg); err != nil {
			logrus.Errorf("Failed to unmarshal message: %v", err)
			return err
		}

		logrus.Infof("Received monitoring request: %+v", monitorMsg)

		// Define notification callback
		notifyCallback := func(n *bvsolana.VaultNotification) {
			logFields := logrus.Fields{
				"state_address": n.StateAddress,
				"signature":     n.Signature,
				"slot":          n.Slot,
				"is_crank":      n.IsCrank,
				"success":       n.Success,
			}
			if n.Error != "" {
				logFields["error"] = n.Error
			}
			logrus.WithFields(logFields).Info("Vault transaction detected")

			// Settle the matching crank record without waiting for the
			// confirmation poller
			if n.IsCrank {
				status := models.CrankStatusConfirmed
				if !n.Success {
					status = models.CrankStatusFailed
				}
				result := config.DB.Model(&models.CrankRecord{}).
					Where("signature = ? AND status = ?", n.Signature, models.CrankStatusSubmitted).
					Update("status", status)
				if result.Error != nil {
					logrus.Errorf("Failed to settle crank record %s: %v", n.Signature, result.Error)
				} else if result.RowsAffected > 0 {
					logrus.Infof("Crank record %s settled as %s", n.Signature, status)
				}
			}
		}

		if monitorMsg.Action == "start" {
			if err := monitor.StartMonitoring(monitorMsg.StateAddress, notifyCallback); err != nil {
				logrus.Errorf("Failed to start monitoring state %s: %v", monitorMsg.StateAddress, err)

				// Increment error count and check if we should stop
				count := incrementErrorCount(monitorMsg.StateAddress)
				if count >= maxErrorCount {
					logrus.Warnf("Skipping monitoring for %s due to excessive errors", monitorMsg.StateAddress)
				} else {
					return err
				}
			} else {
				resetErrorCount(monitorMsg.StateAddress)
				logrus.Infof("Started monitoring vault state: %s", monitorMsg.StateAddress)
			}
		} else if monitorMsg.Action == "stop" {
			if err := monitor.StopMonitoring(monitorMsg.StateAddress); err != nil {
				logrus.Errorf("Failed to stop monitoring state %s: %v", monitorMsg.StateAddress, err)
			} else {
				logrus.Infof("Stopped monitoring vault state: %s", monitorMsg.StateAddress)
			}
		}

		return nil
	})

	if err != nil {
		log.Fatal("Failed to start consumer: ", err)
	}
}

// incrementErrorCount increments the error count for an address
func incrementErrorCount(address string) int {
	errorCountsMu.Lock()
	defer errorCountsMu.Unlock()

	errorCounts[address]++
	count := errorCounts[address]
	logrus.Warnf("Error count for address %s: %d/%d", address, count, maxErrorCount)
	return count
}

// resetErrorCount resets the error count for an address
func resetErrorCount(address string) {
	errorCountsMu.Lock()
	defer errorCountsMu.Unlock()

	delete(errorCounts, address)
}
