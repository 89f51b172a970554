// Package worker drains the notification queue and hands each job to a
// Mailer. Email delivery itself is an external collaborator.
package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ausspeedruns/backend/pkg/queue"
)

// Message is one outgoing notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	Logger *zap.Logger
}

// Send logs the message.
func (m LogMailer) Send(_ context.Context, msg Message) error {
	m.Logger.Info("notification", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// JobSource is the queue the processor drains.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// NotificationProcessor renders notification jobs and sends them.
type NotificationProcessor struct {
	source  JobSource
	mailer  Mailer
	logger  *zap.Logger
	backoff time.Duration
	poll    time.Duration
}

// NewNotificationProcessor creates a processor.
func NewNotificationProcessor(source JobSource, mailer Mailer, logger *zap.Logger) *NotificationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationProcessor{
		source:  source,
		mailer:  mailer,
		logger:  logger,
		backoff: queue.RetryBackoff,
		poll:    5 * time.Second,
	}
}

// Render builds the message for a job.
func Render(job *queue.Job) (Message, error) {
	var p queue.NotificationPayload
	if err := job.Decode(&p); err != nil {
		return Message{}, err
	}
	to := p.Email
	if to == "" {
		to = p.Username
	}
	if to == "" {
		return Message{}, fmt.Errorf("%s job %s has no recipient", job.Type, job.ID)
	}
	m := Message{To: to}
	switch job.Type {
	case queue.JobVerifyEmail:
		m.Subject = "Verify your AusSpeedruns account"
		m.Body = fmt.Sprintf("Hi %s, your verification code is %s.", p.Username, p.Code)
	case queue.JobTicketIssued:
		m.Subject = fmt.Sprintf("Your %s ticket reservation", p.Event)
		m.Body = fmt.Sprintf("We reserved %d ticket(s) for %s. Payment reference: %s.", p.Quantity, p.Event, p.PaymentReference)
	case queue.JobTicketPaid:
		m.Subject = fmt.Sprintf("Your %s tickets are confirmed", p.Event)
		m.Body = fmt.Sprintf("Payment %s received for %d ticket(s).", p.PaymentReference, p.Quantity)
	case queue.JobShirtIssued:
		m.Subject = "Your shirt order"
		m.Body = fmt.Sprintf("We received your shirt order. Payment reference: %s.", p.PaymentReference)
	case queue.JobShirtPaid:
		m.Subject = "Your shirt order is paid"
		m.Body = fmt.Sprintf("Payment %s received for your shirt order.", p.PaymentReference)
	default:
		return Message{}, fmt.Errorf("unknown job type: %s", job.Type)
	}
	return m, nil
}

// Process executes one notification job.
func (p *NotificationProcessor) Process(ctx context.Context, job *queue.Job) error {
	m, err := Render(job)
	if err != nil {
		return err
	}
	if err := p.mailer.Send(ctx, m); err != nil {
		return fmt.Errorf("send %s: %w", job.Type, err)
	}
	p.logger.Debug("notification sent", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *NotificationProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification worker stopping")
			return
		default:
		}

		job, err := p.source.Dequeue(ctx, p.poll)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.source.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *NotificationProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
