package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Campos comunes en los eventos del ledger.
const (
	FieldCompanyID  = "company_id"
	FieldComponent  = "component"
	FieldLotID      = "lot_id"
	FieldDeliveryID = "delivery_id"
)

// Config opciones para el logger.
type Config struct {
	App   string // se agrega como campo "app" en cada evento
	Env   string // development -> consola legible con caller; resto -> JSON
	Level string // trace, debug, info, warn, error
}

// Logger envuelve zerolog para inyectarlo en casos de uso y adaptadores.
type Logger struct {
	zl zerolog.Logger
}

// New crea el logger del proceso y lo deja también como logger global de zerolog.
func New(cfg Config) *Logger {
	var w io.Writer = os.Stdout
	dev := cfg.Env == "development"
	if dev {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05.000"}
	}
	zc := zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp()
	if cfg.App != "" {
		zc = zc.Str("app", cfg.App)
	}
	if dev {
		zc = zc.Caller()
	}
	zl := zc.Logger()
	log.Logger = zl
	return &Logger{zl: zl}
}

// NewWriter logger JSON sobre w, para inspeccionar la salida en tests.
func NewWriter(w io.Writer, level string) *Logger {
	return &Logger{zl: zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()}
}

// Nop descarta todo.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// ParseLevel traduce LOG_LEVEL; un valor desconocido o vacío es info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) Trace() *zerolog.Event { return l.zl.Trace() }
func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }
func (l *Logger) Fatal() *zerolog.Event { return l.zl.Fatal() }

// Named sublogger de un componente (coordinator, http, alerts...).
func (l *Logger) Named(component string) *Logger {
	return &Logger{zl: l.zl.With().Str(FieldComponent, component).Logger()}
}

// Tenant sublogger con company_id fijado. Vacío devuelve el mismo logger.
func (l *Logger) Tenant(companyID string) *Logger {
	if companyID == "" {
		return l
	}
	return &Logger{zl: l.zl.With().Str(FieldCompanyID, companyID).Logger()}
}
