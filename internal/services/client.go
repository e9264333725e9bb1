package services

import (
	"context"
	"errors"
	"strings"

	"github.com/diewo77/facturation/internal/models"
	"github.com/diewo77/facturation/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ClientInput holds the mutable fields of a client.
type ClientInput struct {
	Name       string `json:"name" validate:"required,max=255"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Entreprise string `json:"entreprise" validate:"required,max=255"`
}

func (in *ClientInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Entreprise = strings.TrimSpace(in.Entreprise)
}

// Validate trims the input and checks it.
func (in *ClientInput) Validate() validation.Violations {
	in.normalize()
	return validation.Struct(in)
}

type ClientService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewClientService(db *gorm.DB, log *zap.Logger) *ClientService {
	return &ClientService{db: db, log: log}
}

// List returns every client ordered by id.
func (s *ClientService) List(ctx context.Context) ([]models.Client, error) {
	clients := []models.Client{}
	if err := s.db.WithContext(ctx).Order("id").Find(&clients).Error; err != nil {
		return nil, storage("list clients", err)
	}
	return clients, nil
}

func (s *ClientService) Get(ctx context.Context, id uint) (*models.Client, error) {
	var c models.Client
	err := s.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("client_not_found")
	}
	if err != nil {
		return nil, storage("get client", err)
	}
	return &c, nil
}

// Create stores a new client with zeroed counters.
func (s *ClientService) Create(ctx context.Context, in ClientInput) (*models.Client, error) {
	if v := in.Validate(); !v.Empty() {
		return nil, invalid(v)
	}
	c := models.Client{Name: in.Name, Email: in.Email, Entreprise: in.Entreprise}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, wrapDB("create client", err)
	}
	s.log.Debug("client created", zap.Uint("client_id", c.ID))
	return &c, nil
}

// Update replaces name, email and entreprise. Counters are left alone.
func (s *ClientService) Update(ctx context.Context, id uint, in ClientInput) (*models.Client, error) {
	if v := in.Validate(); !v.Empty() {
		return nil, invalid(v)
	}
	var c models.Client
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockClients(tx, id); err != nil {
			return err
		}
		err := tx.Model(&models.Client{}).Where("id = ?", id).Updates(map[string]any{
			"name":       in.Name,
			"email":      in.Email,
			"entreprise": in.Entreprise,
		}).Error
		if err != nil {
			return err
		}
		return tx.First(&c, id).Error
	})
	if err != nil {
		return nil, wrapDB("update client", err)
	}
	s.log.Debug("client updated", zap.Uint("client_id", id))
	return &c, nil
}

// Delete removes the client and all of its invoices atomically.
func (s *ClientService) Delete(ctx context.Context, id uint) error {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockClients(tx, id); err != nil {
			return err
		}
		res := tx.Where("client_id = ?", id).Delete(&models.Invoice{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return tx.Delete(&models.Client{}, id).Error
	})
	if err != nil {
		return wrapDB("delete client", err)
	}
	s.log.Debug("client deleted", zap.Uint("client_id", id), zap.Int64("invoices_removed", removed))
	return nil
}
