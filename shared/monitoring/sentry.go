package monitoring

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryConfig holds Sentry configuration options
type SentryConfig struct {
	DSN         string
	Environment string
	Release     string
	SampleRate  float64
	ServiceName string
}

// InitSentry initializes Sentry with the provided configuration.
// A missing DSN disables reporting without error.
func InitSentry(config *SentryConfig) error {
	if config == nil || config.DSN == "" {
		return nil
	}

	environment := config.Environment
	if environment == "" {
		environment = "development"
	}

	sampleRate := config.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         config.DSN,
		Environment: environment,
		Release:     config.Release,
		SampleRate:  sampleRate,
		ServerName:  config.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}

	return nil
}

// Flush drains buffered events before shutdown
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

// CaptureError reports an error with component tagging
func CaptureError(err error, component string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		sentry.CaptureException(err)
	})
}
