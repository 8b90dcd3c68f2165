package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/usecase"
)

// OutboxRepository implements usecase.OutboxRepository on MySQL.
type OutboxRepository struct {
	db *gorm.DB
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Create(ctx context.Context, scope usecase.Scope, event *domain.OutboxEvent) error {
	tx, err := txOf(ctx, scope)
	if err != nil {
		return err
	}
	m, err := toOutboxModel(event)
	if err != nil {
		return err
	}
	return tx.Create(m).Error
}

func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("published = ?", false).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	events := make([]*domain.OutboxEvent, 0, len(rows))
	for i := range rows {
		events = append(events, rows[i].toDomain())
	}
	return events, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"published": true, "published_at": publishedAt}).Error
}

func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	return r.db.WithContext(ctx).
		Where("published = ? AND published_at < ?", true, before).
		Delete(&outboxModel{}).Error
}
