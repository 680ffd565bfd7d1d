package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"beifahrer/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.KnowledgeDocument) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create knowledge document failed: %w", err)
	}
	return nil
}

// FindByName returns (nil, nil) when no document carries the name.
func (r *DocumentRepository) FindByName(name string) (*model.KnowledgeDocument, error) {
	var doc model.KnowledgeDocument
	if err := r.db.Where("name = ?", name).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find knowledge document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) Delete(id uint) error {
	if err := r.db.Delete(&model.KnowledgeDocument{}, id).Error; err != nil {
		return fmt.Errorf("delete knowledge document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) ListAll() ([]model.KnowledgeDocument, error) {
	var docs []model.KnowledgeDocument
	if err := r.db.Order("created_at ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list knowledge documents failed: %w", err)
	}
	return docs, nil
}
