package cmd

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-approvals/config"
)

func TestConfigureLoggingSetsLevelAndFormatter(t *testing.T) {
	prevLevel := logrus.GetLevel()
	prevFormatter := logrus.StandardLogger().Formatter
	t.Cleanup(func() {
		logrus.SetLevel(prevLevel)
		logrus.SetFormatter(prevFormatter)
	})

	if err := configureLogging(&config.Config{Log: config.LogConfig{Level: "debug"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logrus.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", logrus.GetLevel())
	}
	if _, ok := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected JSON formatter, got %T", logrus.StandardLogger().Formatter)
	}
}

func TestConfigureLoggingRejectsUnknownLevel(t *testing.T) {
	if err := configureLogging(&config.Config{Log: config.LogConfig{Level: "loud"}}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
