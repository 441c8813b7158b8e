// Package scheduler ejecuta el barrido periódico de stock crítico.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jhoicas/epp-ledger/internal/application/inventory"
	"github.com/jhoicas/epp-ledger/pkg/logger"
)

// sweepTimeout tiempo máximo de un barrido completo.
const sweepTimeout = 2 * time.Minute

// Scheduler evalúa los umbrales de cada empresa y publica las que tienen variantes críticas.
type Scheduler struct {
	cron      *cron.Cron
	spec      string
	registry  *inventory.ThresholdRegistry
	publisher inventory.AlertPublisher
	log       *logger.Logger
}

// New crea el scheduler. spec es una expresión cron estándar de 5 campos.
func New(spec string, registry *inventory.ThresholdRegistry, publisher inventory.AlertPublisher, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		spec:      spec,
		registry:  registry,
		publisher: publisher,
		log:       log,
	}
}

// Start registra el barrido y arranca el cron. Falla si la expresión es inválida.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return err
	}
	s.log.Info().Str("schedule", s.spec).Msg("barrido de stock crítico programado")
	s.cron.Start()
	return nil
}

// Stop detiene el cron y espera el barrido en curso.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	if _, err := s.Sweep(ctx); err != nil {
		s.log.Error().Err(err).Msg("barrido de stock crítico falló")
	}
}

// Sweep evalúa todas las empresas con umbrales y publica las que tienen al menos una variante
// crítica. Devuelve cuántas empresas se publicaron. Un fallo de una empresa no detiene el resto.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	companies, err := s.registry.Companies(ctx)
	if err != nil {
		return 0, err
	}
	published := 0
	for _, companyID := range companies {
		log := s.log.Tenant(companyID)
		report, err := s.registry.Evaluate(ctx, companyID)
		if err != nil {
			log.Error().Err(err).Msg("evaluar umbrales")
			continue
		}
		if report.CriticalCount == 0 {
			continue
		}
		if err := s.publisher.CriticalStock(ctx, companyID, report); err != nil {
			log.Error().Err(err).Msg("publicar stock crítico")
			continue
		}
		published++
		log.Info().Int("critical_count", report.CriticalCount).Msg("alerta de stock crítico publicada")
	}
	return published, nil
}

// LogPublisher publica las alertas solo en el log (sin webhook configurado).
type LogPublisher struct {
	log *logger.Logger
}

// NewLogPublisher construye el publicador.
func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// CriticalStock registra cada variante crítica como warning.
func (p *LogPublisher) CriticalStock(_ context.Context, companyID string, report *inventory.CriticalReport) error {
	log := p.log.Tenant(companyID)
	for _, it := range report.Critical() {
		log.Warn().
			Str("variant", it.Variant.Key()).
			Int64("available", it.Available).
			Int64("min_quantity", it.MinQuantity).
			Msg("stock crítico")
	}
	return nil
}
