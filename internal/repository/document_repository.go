package repository

import (
	"fmt"

	"gorm.io/gorm"

	"ragdesk/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) List() ([]model.Document, error) {
	var list []model.Document
	if err := r.db.Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return list, nil
}

func (r *DocumentRepository) DeleteAll() error {
	if err := r.db.Where("1 = 1").Delete(&model.Document{}).Error; err != nil {
		return fmt.Errorf("delete documents failed: %w", err)
	}
	return nil
}
