package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-admission-api/internal/notify"
	"github.com/noah-isme/sma-admission-api/internal/sheets"
	"github.com/noah-isme/sma-admission-api/pkg/jobs"
)

// Job types carried on the side-effect queue.
const (
	jobTypeMail           = "mail"
	jobTypeSMS            = "sms"
	jobTypeRegisterAppend = "register_append"
	jobTypeRegisterUpdate = "register_update"
	jobTypeRegisterStatus = "register_status"
)

type smsPayload struct {
	To   string
	Text string
}

type registerPayload struct {
	AdmissionID string
	Row         sheets.Row
	Status      string
}

// Dispatcher routes best-effort side effects (mail, SMS, register mirror
// writes) through the background queue so workflow transitions never block on
// or fail with them.
type Dispatcher struct {
	queue    *jobs.Queue
	mailer   notify.Mailer
	sms      notify.SMSSender
	register sheets.Register
	logger   *zap.Logger
}

// NewDispatcher wires the queue and collaborators.
func NewDispatcher(mailer notify.Mailer, sms notify.SMSSender, register sheets.Register, cfg jobs.QueueConfig, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{mailer: mailer, sms: sms, register: register, logger: logger}
	cfg.Logger = logger
	d.queue = jobs.NewQueue("side-effects", d.handle, cfg)
	return d
}

// Start begins queue consumption.
func (d *Dispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop drains workers.
func (d *Dispatcher) Stop() {
	d.queue.Stop()
}

// Mail enqueues an email. Errors are logged, not returned: dispatch is
// best-effort by contract.
func (d *Dispatcher) Mail(msg notify.Message) {
	d.enqueue(jobTypeMail, msg)
}

// SMS enqueues a text message.
func (d *Dispatcher) SMS(to, text string) {
	d.enqueue(jobTypeSMS, smsPayload{To: to, Text: text})
}

// RegisterAppend enqueues a register append. No-op when the register mirror
// is disabled.
func (d *Dispatcher) RegisterAppend(row sheets.Row) {
	if d.register == nil {
		return
	}
	d.enqueue(jobTypeRegisterAppend, registerPayload{AdmissionID: row.AdmissionID, Row: row})
}

// RegisterUpdate enqueues a full-row overwrite keyed by admission id.
func (d *Dispatcher) RegisterUpdate(admissionID string, row sheets.Row) {
	if d.register == nil {
		return
	}
	d.enqueue(jobTypeRegisterUpdate, registerPayload{AdmissionID: admissionID, Row: row})
}

// RegisterStatus enqueues a status-cell flip.
func (d *Dispatcher) RegisterStatus(admissionID, status string) {
	if d.register == nil {
		return
	}
	d.enqueue(jobTypeRegisterStatus, registerPayload{AdmissionID: admissionID, Status: status})
}

func (d *Dispatcher) enqueue(jobType string, payload interface{}) {
	err := d.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobType,
		Payload: payload,
	})
	if err != nil {
		d.logger.Sugar().Warnw("failed to enqueue side effect", "type", jobType, "error", err)
	}
}

func (d *Dispatcher) handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case jobTypeMail:
		msg, ok := job.Payload.(notify.Message)
		if !ok {
			return fmt.Errorf("invalid mail payload")
		}
		return d.mailer.Send(ctx, msg)
	case jobTypeSMS:
		p, ok := job.Payload.(smsPayload)
		if !ok {
			return fmt.Errorf("invalid sms payload")
		}
		return d.sms.Send(ctx, p.To, p.Text)
	case jobTypeRegisterAppend:
		p, ok := job.Payload.(registerPayload)
		if !ok {
			return fmt.Errorf("invalid register payload")
		}
		return d.register.Append(ctx, p.Row)
	case jobTypeRegisterUpdate:
		p, ok := job.Payload.(registerPayload)
		if !ok {
			return fmt.Errorf("invalid register payload")
		}
		return d.register.Update(ctx, p.AdmissionID, p.Row)
	case jobTypeRegisterStatus:
		p, ok := job.Payload.(registerPayload)
		if !ok {
			return fmt.Errorf("invalid register payload")
		}
		return d.register.SetStatus(ctx, p.AdmissionID, p.Status)
	default:
		return fmt.Errorf("unknown job type %s", job.Type)
	}
}
