package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/AzielCF/az-crm/customers/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- Persistence Model ---

type customerModel struct {
	ID         string    `gorm:"primaryKey"`
	FirstName  string    `gorm:"index:idx_customers_name,priority:1;not null"`
	LastName   string    `gorm:"index:idx_customers_name,priority:2"`
	Phone      string    `gorm:"index:idx_customers_phone"`
	Email      string    `gorm:"index:idx_customers_email"`
	Product    string    `gorm:"column:product"`
	AssignedTo string    `gorm:"index:idx_customers_assigned_to"`
	Status     string    `gorm:"index:idx_customers_status;not null"`
	Notes      string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (customerModel) TableName() string {
	return "customers"
}

// --- Repository Implementation ---

type CustomerGormRepository struct {
	db *gorm.DB
}

func NewCustomerGormRepository(db *gorm.DB) *CustomerGormRepository {
	return &CustomerGormRepository{db: db}
}

func (r *CustomerGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&customerModel{})
}

func (r *CustomerGormRepository) Create(ctx context.Context, customer *domain.Customer) error {
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = now
	}
	customer.UpdatedAt = now

	model := toCustomerModel(customer)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *CustomerGormRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	var m customerModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}
	return fromCustomerModel(m), nil
}

func (r *CustomerGormRepository) Update(ctx context.Context, customer *domain.Customer) error {
	customer.UpdatedAt = time.Now().UTC()
	model := toCustomerModel(customer)

	// Select("*") para que también se escriban los campos vacíos
	result := r.db.WithContext(ctx).Model(&customerModel{ID: customer.ID}).
		Select("*").Omit("created_at").
		Updates(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func (r *CustomerGormRepository) List(ctx context.Context, filter domain.CustomerFilter) ([]*domain.Customer, error) {
	query := r.db.WithContext(ctx).Model(&customerModel{})

	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if assignee := strings.TrimSpace(filter.AssignedTo); assignee != "" {
		query = query.Where("assigned_to = ?", strings.ToUpper(assignee))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR email LIKE ? OR phone LIKE ?", pattern, pattern, pattern, pattern)
	}

	query = query.Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var models []customerModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]*domain.Customer, 0, len(models))
	for _, m := range models {
		out = append(out, fromCustomerModel(m))
	}
	return out, nil
}

// --- Mappers ---

func toCustomerModel(c *domain.Customer) customerModel {
	return customerModel{
		ID:         c.ID,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		Phone:      c.Phone,
		Email:      c.Email,
		Product:    c.Product,
		AssignedTo: c.AssignedTo,
		Status:     string(c.Status),
		Notes:      c.Notes,
		CreatedAt:  c.CreatedAt.UTC(),
		UpdatedAt:  c.UpdatedAt.UTC(),
	}
}

func fromCustomerModel(m customerModel) *domain.Customer {
	return &domain.Customer{
		ID:         m.ID,
		FirstName:  m.FirstName,
		LastName:   m.LastName,
		Phone:      m.Phone,
		Email:      m.Email,
		Product:    m.Product,
		AssignedTo: m.AssignedTo,
		Status:     domain.CustomerStatus(m.Status),
		Notes:      m.Notes,
		CreatedAt:  m.CreatedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
}
