package repository

import (
	"context"
	"errors"
	"fmt"

	"chili-cookoff-backend/models"

	"gorm.io/gorm"
)

// EntryRepository stores entries in a relational database.
type EntryRepository struct {
	db *gorm.DB
}

// NewEntryRepository creates an entry repository.
func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// Create inserts a new entry with zeroed aggregates.
func (r *EntryRepository) Create(ctx context.Context, input models.EntryInput) (*models.Entry, error) {
	entry := &models.Entry{
		Name:        input.Name,
		ChefName:    input.ChefName,
		Description: input.Description,
		Ingredients: input.Ingredients,
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	return entry, nil
}

// Get loads one entry.
func (r *EntryRepository) Get(ctx context.Context, id string) (*models.Entry, error) {
	var entry models.Entry
	err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %s: %w", id, err)
	}
	return &entry, nil
}

// Exists reports whether an entry with id exists.
func (r *EntryRepository) Exists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Entry{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check entry %s: %w", id, err)
	}
	return n > 0, nil
}

// Leaderboard lists all entries, best rated first.
func (r *EntryRepository) Leaderboard(ctx context.Context) ([]models.Entry, error) {
	var entries []models.Entry
	err := r.db.WithContext(ctx).
		Order("average_rating DESC").
		Order("vote_count DESC").
		Order("name ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// IDs returns every entry id.
func (r *EntryRepository) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.Entry{}).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list entry ids: %w", err)
	}
	return ids, nil
}

// Update overwrites the descriptive fields of an entry. Aggregates are untouched.
func (r *EntryRepository) Update(ctx context.Context, id string, input models.EntryInput) (*models.Entry, error) {
	res := r.db.WithContext(ctx).Model(&models.Entry{}).Where("id = ?", id).Updates(map[string]any{
		"name":        input.Name,
		"chef_name":   input.ChefName,
		"description": input.Description,
		"ingredients": input.Ingredients,
	})
	if res.Error != nil {
		return nil, fmt.Errorf("update entry %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes an entry together with all of its votes.
func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entry_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
			return fmt.Errorf("delete votes of entry %s: %w", id, err)
		}
		res := tx.Where("id = ?", id).Delete(&models.Entry{})
		if res.Error != nil {
			return fmt.Errorf("delete entry %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
