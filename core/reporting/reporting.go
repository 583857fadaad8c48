// Package reporting forwards unrecoverable failures to Sentry alongside the
// regular log line. Without a DSN every call is a plain log.
package reporting

import (
	"time"

	"github.com/AzielCF/az-inbox/core/config"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

func Init(cfg config.SentryConfig, release string) error {
	if cfg.DSN == "" {
		logrus.Debug("[REPORTING] Sentry disabled, no DSN configured")
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     release,
	})
	if err != nil {
		return err
	}
	logrus.Infof("[REPORTING] Sentry enabled (env=%s)", cfg.Environment)
	return nil
}

// CaptureError logs err with fields and reports it tagged with kind.
func CaptureError(err error, kind string, fields map[string]any) {
	if err == nil {
		return
	}
	logrus.WithFields(logrus.Fields(fields)).WithField("error_type", kind).WithError(err).Error("[REPORTING] Error captured")

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_type", kind)
		for k, v := range fields {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Breadcrumb records a non-error event that gives context to later captures.
func Breadcrumb(category, message string, data map[string]any) {
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Type:      "info",
		Category:  category,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// Flush waits up to timeout for buffered events before the process exits.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}
