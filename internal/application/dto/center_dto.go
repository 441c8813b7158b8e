package dto

import "time"

// CreateCenterRequest entrada para crear un centro de trabajo.
type CreateCenterRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=200"`
	Address string `json:"address"`
}

// CenterResponse salida de un centro.
type CenterResponse struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"companyId"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CenterListResponse lista paginada de centros.
type CenterListResponse struct {
	Items []CenterResponse `json:"items"`
	Page  PageResponse     `json:"page"`
}

// CreateWorkerRequest entrada para registrar un trabajador.
type CreateWorkerRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=200"`
	DocumentID string `json:"documentId"`
	CenterID   string `json:"centerId"`
}

// WorkerResponse salida de un trabajador.
type WorkerResponse struct {
	ID         string    `json:"id"`
	CompanyID  string    `json:"companyId"`
	CenterID   string    `json:"centerId,omitempty"`
	Name       string    `json:"name"`
	DocumentID string    `json:"documentId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// WorkerListResponse lista paginada de trabajadores.
type WorkerListResponse struct {
	Items []WorkerResponse `json:"items"`
	Page  PageResponse     `json:"page"`
}
