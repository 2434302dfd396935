package order

import (
	"context"
	"errors"

	"github.com/TNZtims/bazaar-pos-sub000/internal/model"

	"gorm.io/gorm"
)

// Sales is the persistence boundary for orders, scoped to a store
type Sales interface {
	Get(ctx context.Context, storeID, saleID uint) (*model.Sale, error)
	List(ctx context.Context, storeID uint, filter ListFilter) ([]model.Sale, error)
	Create(ctx context.Context, sale *model.Sale) error
	Save(ctx context.Context, sale *model.Sale) error
	// ReplaceItems persists the sale together with a fully replaced line set
	ReplaceItems(ctx context.Context, sale *model.Sale, items []model.SaleItem) error
	Delete(ctx context.Context, sale *model.Sale) error
}

// ListFilter narrows the sales listing
type ListFilter struct {
	Status         string
	PaymentStatus  string
	ApprovalStatus string
}

// GormSales implements Sales against Postgres through gorm
type GormSales struct {
	db *gorm.DB
}

func NewGormSales(db *gorm.DB) *GormSales {
	return &GormSales{db: db}
}

func (s *GormSales) Get(ctx context.Context, storeID, saleID uint) (*model.Sale, error) {
	var sale model.Sale
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Preload("History").
		Where("id = ? AND store_id = ?", saleID, storeID).
		First(&sale).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *GormSales) List(ctx context.Context, storeID uint, filter ListFilter) ([]model.Sale, error) {
	query := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Where("store_id = ?", storeID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.ApprovalStatus != "" {
		query = query.Where("approval_status = ?", filter.ApprovalStatus)
	}

	var sales []model.Sale
	if err := query.Order("created_at DESC").Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *GormSales) Create(ctx context.Context, sale *model.Sale) error {
	return s.db.WithContext(ctx).Create(sale).Error
}

func (s *GormSales) Save(ctx context.Context, sale *model.Sale) error {
	return s.db.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(sale).Error
}

func (s *GormSales) ReplaceItems(ctx context.Context, sale *model.Sale, items []model.SaleItem) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sale_id = ?", sale.ID).Delete(&model.SaleItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].ID = 0
			items[i].SaleID = sale.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		sale.Items = items
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(sale).Error
	})
}

func (s *GormSales) Delete(ctx context.Context, sale *model.Sale) error {
	return s.db.WithContext(ctx).Select("Items", "Payments", "History").Delete(sale).Error
}
