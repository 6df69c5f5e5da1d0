// Package notify sends operator-facing emails via Resend: a job queue
// entry reaching a terminal state (spec.md §4.6) is the only event this
// Core emails about. Optional: a zero-value Config leaves Client nil and
// every Send call becomes a no-op, the same shape
// internal/platform/archive's nil-client path uses for S3.
package notify

import (
	"context"
	"fmt"

	"github.com/andreypavlenko/caesub/internal/config"
	"github.com/resend/resend-go/v2"
)

// Client wraps the Resend SDK for the one notification this Core sends.
type Client struct {
	sdk  *resend.Client
	from string
	to   string
}

// New constructs a Client from ResendConfig, or returns nil when it is not
// configured (cfg.Enabled() false) — callers must nil-check before use.
func New(cfg config.ResendConfig) *Client {
	if !cfg.Enabled() {
		return nil
	}
	return &Client{sdk: resend.NewClient(cfg.APIKey), from: cfg.From, to: cfg.To}
}

// JobFinished emails the operator that a queued apply job reached a
// terminal state, summarizing the outcome (spec.md §4.6).
func (c *Client) JobFinished(ctx context.Context, jobID, planID string, status string, success, failed, skipped int) error {
	if c == nil {
		return nil
	}
	subject := fmt.Sprintf("[caesub] job %s %s", jobID, status)
	body := fmt.Sprintf(
		"plan_id: %s\nstatus: %s\nsuccess: %d\nfailed: %d\nskipped: %d\n",
		planID, status, success, failed, skipped,
	)
	_, err := c.sdk.Emails.Send(&resend.SendEmailRequest{
		From:    c.from,
		To:      []string{c.to},
		Subject: subject,
		Text:    body,
	})
	if err != nil {
		return fmt.Errorf("notify: send job-finished email: %w", err)
	}
	return nil
}
