package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/epp-ledger/internal/application/dto"
	"github.com/jhoicas/epp-ledger/internal/domain"
	"github.com/jhoicas/epp-ledger/internal/domain/entity"
	"github.com/jhoicas/epp-ledger/internal/domain/repository"
)

// CenterUseCase casos de uso para centros de trabajo y sus trabajadores.
type CenterUseCase struct {
	centerRepo repository.CenterRepository
	workerRepo repository.WorkerRepository
}

// NewCenterUseCase construye el caso de uso.
func NewCenterUseCase(centerRepo repository.CenterRepository, workerRepo repository.WorkerRepository) *CenterUseCase {
	return &CenterUseCase{centerRepo: centerRepo, workerRepo: workerRepo}
}

// Create crea un nuevo centro.
func (uc *CenterUseCase) Create(ctx context.Context, companyID string, in dto.CreateCenterRequest) (*dto.CenterResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "nombre requerido")
	}
	now := time.Now().UTC()
	center := &entity.Center{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Name:      name,
		Address:   strings.TrimSpace(in.Address),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.centerRepo.Create(ctx, center); err != nil {
		return nil, err
	}
	return toCenterResponse(center), nil
}

// GetByID obtiene un centro de la empresa. Un centro ajeno se reporta como no encontrado.
func (uc *CenterUseCase) GetByID(ctx context.Context, companyID, id string) (*dto.CenterResponse, error) {
	center, err := uc.centerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if center == nil || center.CompanyID != companyID {
		return nil, nil
	}
	return toCenterResponse(center), nil
}

// List lista centros por empresa con paginación.
func (uc *CenterUseCase) List(ctx context.Context, companyID string, limit, offset int) (*dto.CenterListResponse, error) {
	list, err := uc.centerRepo.ListByCompany(ctx, companyID, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.CenterResponse, 0, len(list))
	for _, c := range list {
		items = append(items, *toCenterResponse(c))
	}
	return &dto.CenterListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

// CreateWorker registra un trabajador. El centro, si se indica, debe ser de la empresa.
func (uc *CenterUseCase) CreateWorker(ctx context.Context, companyID string, in dto.CreateWorkerRequest) (*dto.WorkerResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "nombre requerido")
	}
	centerID := strings.TrimSpace(in.CenterID)
	if centerID != "" {
		center, err := uc.centerRepo.GetByID(ctx, centerID)
		if err != nil {
			return nil, err
		}
		if center == nil {
			return nil, domain.NewValidationError("centerId", "centro no encontrado")
		}
		if center.CompanyID != companyID {
			return nil, &domain.TenantMismatchError{Entity: "center", ID: centerID}
		}
	}
	worker := &entity.Worker{
		ID:         uuid.New().String(),
		CompanyID:  companyID,
		CenterID:   centerID,
		Name:       name,
		DocumentID: strings.TrimSpace(in.DocumentID),
		CreatedAt:  time.Now().UTC(),
	}
	if err := uc.workerRepo.Create(ctx, worker); err != nil {
		return nil, err
	}
	return toWorkerResponse(worker), nil
}

// ListWorkers lista trabajadores por empresa con paginación.
func (uc *CenterUseCase) ListWorkers(ctx context.Context, companyID string, limit, offset int) (*dto.WorkerListResponse, error) {
	list, err := uc.workerRepo.ListByCompany(ctx, companyID, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.WorkerResponse, 0, len(list))
	for _, w := range list {
		items = append(items, *toWorkerResponse(w))
	}
	return &dto.WorkerListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

func toCenterResponse(c *entity.Center) *dto.CenterResponse {
	if c == nil {
		return nil
	}
	return &dto.CenterResponse{
		ID:        c.ID,
		CompanyID: c.CompanyID,
		Name:      c.Name,
		Address:   c.Address,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toWorkerResponse(w *entity.Worker) *dto.WorkerResponse {
	return &dto.WorkerResponse{
		ID:         w.ID,
		CompanyID:  w.CompanyID,
		CenterID:   w.CenterID,
		Name:       w.Name,
		DocumentID: w.DocumentID,
		CreatedAt:  w.CreatedAt,
	}
}
