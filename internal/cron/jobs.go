package cron

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/flemzord/tgclaw/pkg/telegram"
)

// Sender is the part of *telegram.Client the send job needs.
type Sender interface {
	SendMessage(ctx context.Context, chat, text, parseMode string, extra telegram.Params) (*telegram.Result, error)
}

var _ Sender = (*telegram.Client)(nil)

// MessageData is what a message template is executed with.
type MessageData struct {
	Job  string
	Chat string
	Now  time.Time
}

// SendMessageJob sends a templated message to a chat on a schedule.
type SendMessageJob struct {
	JobName   string
	Expr      string
	Chat      string
	ParseMode string
	Silent    bool
	Client    Sender
	Logger    *slog.Logger

	// Quiet, when set, is checked against the run time in Location
	// (time.Local when nil). QuietMode is QuietSilent or QuietSkip.
	Quiet     *QuietHours
	QuietMode string
	Location  *time.Location

	text *template.Template
	now  func() time.Time
}

var _ Job = (*SendMessageJob)(nil)

// NewSendMessageJob parses text as a text/template.
func NewSendMessageJob(name, expr, chat, text string) (*SendMessageJob, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("cron: job %q: parse text: %w", name, err)
	}
	return &SendMessageJob{
		JobName: name,
		Expr:    expr,
		Chat:    chat,
		text:    tmpl,
		now:     time.Now,
	}, nil
}

// Name implements Job.
func (j *SendMessageJob) Name() string { return j.JobName }

// Schedule implements Job.
func (j *SendMessageJob) Schedule() string { return j.Expr }

// Render executes the text template.
func (j *SendMessageJob) Render() (string, error) {
	var buf bytes.Buffer
	data := MessageData{Job: j.JobName, Chat: j.Chat, Now: j.localNow()}
	if err := j.text.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("cron: job %q: render text: %w", j.JobName, err)
	}
	return buf.String(), nil
}

func (j *SendMessageJob) localNow() time.Time {
	if j.Location != nil {
		return j.now().In(j.Location)
	}
	return j.now()
}

// Run implements Job. A call the API rejects is an error.
func (j *SendMessageJob) Run(ctx context.Context) error {
	silent := j.Silent
	if j.Quiet != nil && j.Quiet.Contains(j.localNow()) {
		if j.QuietMode == QuietSkip {
			if j.Logger != nil {
				j.Logger.Info("cron: quiet hours, message skipped", "job", j.JobName, "window", j.Quiet.String())
			}
			return nil
		}
		silent = true
	}

	text, err := j.Render()
	if err != nil {
		return err
	}

	var extra telegram.Params
	if silent {
		extra = telegram.Params{"disable_notification": true}
	}
	res, err := j.Client.SendMessage(ctx, j.Chat, text, j.ParseMode, extra)
	if err != nil {
		return fmt.Errorf("cron: job %q: %w", j.JobName, err)
	}
	if res.HasError() {
		return fmt.Errorf("cron: job %q: sendMessage failed with status %d", j.JobName, res.StatusCode())
	}

	if j.Logger != nil {
		j.Logger.Info("cron: message sent", "job", j.JobName, "chat", j.Chat)
	}
	return nil
}
