// Package webhook publica eventos del ledger (entrega confirmada, stock crítico) a un endpoint HTTP externo.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jhoicas/epp-ledger/internal/application/dto"
	"github.com/jhoicas/epp-ledger/internal/application/inventory"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/pkg/config"
)

// Eventos publicados.
const (
	EventDeliveryCommitted = "delivery.committed"
	EventCriticalStock     = "stock.critical"
)

// SignatureHeader HMAC-SHA256 (hex) del cuerpo con WEBHOOK_SECRET.
const SignatureHeader = "X-Ledger-Signature"

var (
	_ inventory.DeliveryNotifier = (*Notifier)(nil)
	_ inventory.AlertPublisher   = (*Notifier)(nil)
)

// Notifier implementación resty de DeliveryNotifier y AlertPublisher.
type Notifier struct {
	httpClient *resty.Client
	url        string
	secret     string
	now        func() time.Time
}

// NewNotifier construye el cliente. cfg.URL es el endpoint completo que recibe los POST.
func NewNotifier(cfg config.WebhookConfig) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	restyClient := resty.New()
	restyClient.
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Notifier{httpClient: restyClient, url: cfg.URL, secret: cfg.Secret, now: time.Now}
}

// Event sobre común de todos los eventos.
type Event struct {
	Event      string    `json:"event"`
	CompanyID  string    `json:"companyId"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// DeliveryCommitted publica la entrega confirmada.
func (n *Notifier) DeliveryCommitted(ctx context.Context, d *entity.Delivery) error {
	return n.post(ctx, Event{
		Event:      EventDeliveryCommitted,
		CompanyID:  d.CompanyID,
		OccurredAt: n.now().UTC(),
		Data:       dto.NewDeliveryResponse(d),
	})
}

// CriticalStock publica las variantes en nivel crítico de la empresa.
func (n *Notifier) CriticalStock(ctx context.Context, companyID string, report *inventory.CriticalReport) error {
	items := make([]dto.ThresholdStatusResponse, 0, report.CriticalCount)
	for _, it := range report.Critical() {
		items = append(items, dto.NewThresholdStatusResponse(it.Variant, it.MinQuantity, it.Available, it.Critical))
	}
	return n.post(ctx, Event{
		Event:      EventCriticalStock,
		CompanyID:  companyID,
		OccurredAt: n.now().UTC(),
		Data:       dto.CriticalReportResponse{CriticalCount: report.CriticalCount, Items: items},
	})
}

func (n *Notifier) post(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("webhook: serializar %s: %w", ev.Event, err)
	}

	req := n.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Ledger-Event", ev.Event).
		SetBody(body)
	if n.secret != "" {
		req.SetHeader(SignatureHeader, Sign(n.secret, body))
	}

	resp, err := req.Post(n.url)
	if err != nil {
		return fmt.Errorf("webhook: enviar %s: %w", ev.Event, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("webhook: %s rechazado: status=%d", ev.Event, resp.StatusCode())
	}
	return nil
}

// Sign firma body con secret (HMAC-SHA256 en hex). El receptor recalcula y compara.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
