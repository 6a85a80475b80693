// Package cron runs scheduled Telegram notifications. It holds the
// scheduler, the send-message job and the "schedule" module that builds
// jobs from configuration.
package cron

import (
	"context"

	"github.com/robfig/cron/v3"
)

// Job is a periodic task.
type Job interface {
	// Name identifies the job in logs. It must be unique per scheduler.
	Name() string

	// Schedule is a 5-field cron expression or a descriptor such as
	// "@hourly" or "@every 30m".
	Schedule() string

	Run(ctx context.Context) error
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule validates a schedule expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	return parser.Parse(expr)
}
