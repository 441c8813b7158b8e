package entity

import "time"

// Center representa un centro de trabajo / faena que recibe traslados y agrupa trabajadores.
type Center struct {
	ID        string
	CompanyID string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Worker trabajador que recibe EPP.
type Worker struct {
	ID         string
	CompanyID  string
	CenterID   string
	Name       string
	DocumentID string // RUT / cédula
	CreatedAt  time.Time
}
