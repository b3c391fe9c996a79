// Package jobs runs background work: the low-stock scan, alert emails and
// the recycle bin reaper.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/comercio-app/comercio/internal/catalog"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail sends a transactional email.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeStockScan scans products below their minimum stock.
	TaskTypeStockScan = "stock:scan"
	// TaskTypeBinPurge reaps recycle bin records past retention.
	TaskTypeBinPurge = "bin:purge"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewStockScanTask constructs the low-stock scan task.
func NewStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskTypeStockScan, nil)
}

// NewBinPurgeTask constructs the recycle bin reaper task.
func NewBinPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskTypeBinPurge, nil)
}

// Mailer delivers alert emails.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LowStockLister lists products at or below their reorder threshold.
type LowStockLister interface {
	LowStockProducts(ctx context.Context) ([]catalog.Product, error)
}

// BinPurger removes expired recycle bin records.
type BinPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Enqueuer submits follow-up tasks from within a handler.
type Enqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error)
}

// Deps carries the collaborators task handlers need.
type Deps struct {
	Logger   *slog.Logger
	Catalog  LowStockLister
	Bin      BinPurger
	Mailer   Mailer
	Enqueuer Enqueuer
	AlertsTo string
}

// HandleSendEmail processes TaskTypeSendEmail tasks.
func (d Deps) HandleSendEmail(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if err := d.Mailer.Send(ctx, payload.To, payload.Subject, payload.Body); err != nil {
		return fmt.Errorf("send email to %s: %w", payload.To, err)
	}
	d.Logger.Info("alert email sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return nil
}

// HandleStockScan looks for products below minimum stock and enqueues one
// summary email per run with shortages.
func (d Deps) HandleStockScan(ctx context.Context, _ *asynq.Task) error {
	products, err := d.Catalog.LowStockProducts(ctx)
	if err != nil {
		return fmt.Errorf("low stock scan: %w", err)
	}
	if len(products) == 0 {
		d.Logger.Debug("low stock scan clean")
		return nil
	}

	body := FormatStockAlert(products)
	subject := fmt.Sprintf("Alerta de stock: %d producto(s) bajo minimo", len(products))
	if _, err := d.Enqueuer.EnqueueSendEmail(ctx, SendEmailPayload{To: d.AlertsTo, Subject: subject, Body: body}); err != nil {
		return fmt.Errorf("enqueue stock alert: %w", err)
	}
	d.Logger.Info("low stock alert queued", slog.Int("products", len(products)))
	return nil
}

// HandleBinPurge reaps recycle bin records older than retention.
func (d Deps) HandleBinPurge(ctx context.Context, _ *asynq.Task) error {
	purged, err := d.Bin.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("bin purge: %w", err)
	}
	if purged > 0 {
		d.Logger.Info("recycle bin purged", slog.Int64("records", purged))
	}
	return nil
}

// FormatStockAlert renders the shortage summary with Spanish number
// formatting, one product per line.
func FormatStockAlert(products []catalog.Product) string {
	p := message.NewPrinter(language.Spanish)
	var b strings.Builder
	p.Fprintf(&b, "Productos con stock por debajo del minimo:\n\n")
	for _, prod := range products {
		p.Fprintf(&b, "- %s (%s): stock %d, minimo %d, valor de reposicion %.2f\n",
			prod.Name, prod.Code, prod.CurrentStock, prod.MinStock,
			float64(prod.MinStock-prod.CurrentStock)*prod.PurchasePrice)
	}
	return b.String()
}
