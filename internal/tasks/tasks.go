package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/config"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/email"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/models"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/services"
)

// Task types.
const (
	TypeEmailDelivery = "email:deliver"
	TypeBillNotify    = "billing:bills:notify"
	TypeOverdueSweep  = "billing:overdue:sweep"
)

// --- Task Client (Enqueuing tasks) ---

// NewClient creates an asynq client over the same Redis the cache uses.
func NewClient(rdb *redis.Client) *asynq.Client {
	clientOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	return asynq.NewClient(clientOpt)
}

// EmailDeliveryPayload carries one outgoing notification.
type EmailDeliveryPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewEmailDeliveryTask builds an email delivery task.
func NewEmailDeliveryTask(to, subject, body string) (*asynq.Task, error) {
	payload, err := json.Marshal(EmailDeliveryPayload{To: to, Subject: subject, Body: body})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal email payload: %w", err)
	}
	return asynq.NewTask(TypeEmailDelivery, payload, asynq.Queue("default")), nil
}

// BillNotifyPayload identifies a generation run whose residents should be
// notified.
type BillNotifyPayload struct {
	Month string `json:"month"`
}

// NewBillNotifyTask builds a bill notification fan-out task for a month.
func NewBillNotifyTask(month string) (*asynq.Task, error) {
	payload, err := json.Marshal(BillNotifyPayload{Month: month})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bill notify payload: %w", err)
	}
	return asynq.NewTask(TypeBillNotify, payload, asynq.Queue("critical")), nil
}

// NewOverdueSweepTask builds an overdue sweep task.
func NewOverdueSweepTask() *asynq.Task {
	return asynq.NewTask(TypeOverdueSweep, nil, asynq.Queue("low"))
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of background tasks.
type TaskProcessor struct {
	cfg         *config.Config
	emailSender email.Sender
	billService services.IBillService
	userService services.IUserService
	taskClient  *asynq.Client
}

// NewTaskProcessor creates a processor with the dependencies task handlers need.
func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	billService services.IBillService,
	userService services.IUserService,
	taskClient *asynq.Client,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:         cfg,
		emailSender: emailSender,
		billService: billService,
		userService: userService,
		taskClient:  taskClient,
	}
}

// SetupServer configures and returns an Asynq server instance.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) *asynq.Server {
	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("ERROR processing task %s: %v", task.Type(), err)
			}),
		},
	)
	return srv
}

// NewMux wires the processor's handlers onto a serve mux.
func NewMux(processor *TaskProcessor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
	mux.HandleFunc(TypeBillNotify, processor.HandleBillNotifyTask)
	mux.HandleFunc(TypeOverdueSweep, processor.HandleOverdueSweepTask)
	return mux
}

// HandleEmailDeliveryTask sends one queued email.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailDeliveryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email payload: %w", err)
	}
	msg := email.BuildMessage(p.cfg.SmtpFromAddress, payload.To, payload.Subject, payload.Body)
	return p.emailSender.Send(ctx, []string{payload.To}, payload.Subject, msg)
}

// HandleBillNotifyTask fans out one email-delivery task per bill issued for
// the month. Runs after the generation transaction committed, so every bill
// it sees is durable.
func (p *TaskProcessor) HandleBillNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload BillNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal bill notify payload: %w", err)
	}

	bills, err := p.billService.GetAllBills(ctx, payload.Month)
	if err != nil {
		return fmt.Errorf("failed to load bills for %s: %w", payload.Month, err)
	}

	for _, bill := range bills {
		if bill.Status != models.BillStatusUnpaid {
			continue // Drafts are not visible yet; paid/pending already know.
		}
		resident, err := p.userService.FindByID(ctx, bill.ResidentID)
		if err != nil {
			log.Printf("WARN: skipping bill notification for resident %s: %v", bill.ResidentID.Hex(), err)
			continue
		}
		subject := fmt.Sprintf("%s: Bill Issued for %s", p.cfg.AppName, bill.Month)
		body := fmt.Sprintf("Dear %s,\n\nYour maintenance bill for %s is ready.\nAmount due: %.2f\nDue date: %s\n\n%s",
			resident.Name, bill.Month, bill.Amount, bill.DueDate.Format("2 Jan 2006"), p.cfg.AppName)
		task, err := NewEmailDeliveryTask(resident.Email, subject, body)
		if err != nil {
			return err
		}
		if _, err := p.taskClient.EnqueueContext(ctx, task); err != nil {
			return fmt.Errorf("failed to enqueue bill email for %s: %w", resident.Email, err)
		}
	}
	return nil
}

// HandleOverdueSweepTask flags residents with bills past their due date.
func (p *TaskProcessor) HandleOverdueSweepTask(ctx context.Context, t *asynq.Task) error {
	flagged, err := p.billService.MarkOverdueResidents(ctx)
	if err != nil {
		return err
	}
	log.Printf("Overdue sweep complete: %d resident(s) flagged", flagged)
	return nil
}
