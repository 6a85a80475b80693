package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgclaw/internal/core"
	"github.com/flemzord/tgclaw/pkg/telegram"
)

// SchedulerService is the name the schedule module binds its scheduler to.
const SchedulerService = "schedule.scheduler"

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
	_ core.Reloader     = (*Module)(nil)
)

// Config is the schedule module section.
type Config struct {
	// Timezone is an IANA name; schedules use local time when empty.
	Timezone string `yaml:"timezone"`

	// QuietHours ("HH:MM-HH:MM" in Timezone) applies to every job.
	// QuietMode is "silent" (default) or "skip".
	QuietHours string `yaml:"quiet_hours"`
	QuietMode  string `yaml:"quiet_mode"`

	Jobs []JobConfig `yaml:"jobs"`
}

// JobConfig describes one scheduled message. Text is a text/template
// executed with MessageData.
type JobConfig struct {
	Name      string `yaml:"name"`
	Schedule  string `yaml:"schedule"`
	Chat      string `yaml:"chat"`
	Text      string `yaml:"text"`
	ParseMode string `yaml:"parse_mode"`
	Silent    bool   `yaml:"silent"`
}

// Module sends configured messages on cron schedules.
type Module struct {
	config    Config
	logger    *slog.Logger
	services  *core.Container
	scheduler *Scheduler
	jobs      []*SendMessageJob
	client    *telegram.Client
	loc       *time.Location
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:       "schedule",
		New:      func() core.Module { return &Module{} },
		Provides: []string{SchedulerService},
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("schedule: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner. Jobs are built and registered
// here so template and schedule errors surface before anything starts.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger
	m.services = ctx.Services()

	loc, err := time.LoadLocation(m.config.Timezone)
	if err != nil {
		return fmt.Errorf("schedule: timezone: %w", err)
	}
	m.loc = loc
	m.scheduler = NewScheduler(m.logger, loc)

	jobs, err := m.buildJobs(m.config)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if err := m.scheduler.RegisterJob(job); err != nil {
			return err
		}
	}
	m.jobs = jobs

	m.services.Instance(SchedulerService, m.scheduler)
	return nil
}

func (m *Module) buildJobs(cfg Config) ([]*SendMessageJob, error) {
	var quiet *QuietHours
	if cfg.QuietHours != "" {
		q, err := ParseQuietHours(cfg.QuietHours)
		if err != nil {
			return nil, fmt.Errorf("schedule: quiet_hours: %w", err)
		}
		quiet = &q
	}

	jobs := make([]*SendMessageJob, 0, len(cfg.Jobs))
	for _, jc := range cfg.Jobs {
		job, err := NewSendMessageJob(jc.Name, jc.Schedule, jc.Chat, jc.Text)
		if err != nil {
			return nil, err
		}
		job.ParseMode = jc.ParseMode
		job.Silent = jc.Silent
		job.Logger = m.logger
		job.Client = m.client
		job.Quiet = quiet
		job.QuietMode = cfg.QuietMode
		job.Location = m.loc
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

func (c *Config) validate() error {
	var errs []error
	if len(c.Jobs) == 0 {
		errs = append(errs, errors.New("schedule: at least one job is required"))
	}
	switch c.QuietMode {
	case "", QuietSilent, QuietSkip:
	default:
		errs = append(errs, fmt.Errorf("schedule: quiet_mode must be %q or %q, got %q", QuietSilent, QuietSkip, c.QuietMode))
	}
	for i, jc := range c.Jobs {
		if jc.Name == "" {
			errs = append(errs, fmt.Errorf("schedule: jobs[%d]: name is required", i))
		}
		if jc.Chat == "" || jc.Text == "" {
			errs = append(errs, fmt.Errorf("schedule: jobs[%d]: chat and text are required", i))
		}
	}
	return errors.Join(errs...)
}

// Start implements core.Starter. It binds the jobs to the telegram
// client and starts the scheduler.
func (m *Module) Start() error {
	client, err := core.Resolve[*telegram.Client](m.services, "telegram")
	if err != nil {
		return fmt.Errorf("schedule: %w (is the telegram module configured?)", err)
	}
	m.client = client
	for _, job := range m.jobs {
		job.Client = client
	}
	return m.scheduler.Start()
}

// Reload implements core.Reloader. The job list is replaced as a whole;
// a timezone change needs a restart.
func (m *Module) Reload(ctx *core.AppContext) error {
	var next Config
	if err := ctx.ModuleConfig().Decode(&next); err != nil {
		return fmt.Errorf("schedule: decode config: %w", err)
	}
	if err := next.validate(); err != nil {
		return err
	}
	if next.Timezone != m.config.Timezone {
		return errors.New("schedule: timezone only changes on restart")
	}

	jobs, err := m.buildJobs(next)
	if err != nil {
		return err
	}
	generic := make([]Job, len(jobs))
	for i, job := range jobs {
		generic[i] = job
	}
	if err := m.scheduler.Replace(generic); err != nil {
		return err
	}

	m.jobs = jobs
	m.config = next
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	if m.scheduler == nil {
		return nil
	}
	return m.scheduler.Stop(ctx)
}
