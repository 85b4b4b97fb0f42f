package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/counter-clean-arch/models"
	"github.com/amirphl/counter-clean-arch/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CounterRepositoryImpl implements CounterRepository on a postgres table through gorm
type CounterRepositoryImpl struct {
	*BaseRepository[models.CounterRecord]
}

func NewCounterRepository(db *gorm.DB) CounterRepository {
	return &CounterRepositoryImpl{BaseRepository: NewBaseRepository[models.CounterRecord](db)}
}

func (r *CounterRepositoryImpl) ByID(ctx context.Context, id string) (*models.Counter, error) {
	db := r.getDB(ctx)
	var row models.CounterRecord
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find counter %q: %w", id, err)
	}
	c := row.ToEntity()
	return &c, nil
}

// GetDefault inserts the zero default when missing and reads it back. The
// insert is ON CONFLICT DO NOTHING so concurrent first reads never collide.
func (r *CounterRepositoryImpl) GetDefault(ctx context.Context) (*models.Counter, error) {
	db := r.getDB(ctx)
	now := utils.UTCNow()
	seed := models.CounterRecord{
		ID:        models.DefaultCounterID,
		Value:     0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("failed to ensure default counter: %w", err)
	}

	c, err := r.ByID(ctx, models.DefaultCounterID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errors.New("default counter vanished after insert")
	}
	return c, nil
}

// Save upserts by id. An existing row keeps its created_at.
func (r *CounterRepositoryImpl) Save(ctx context.Context, counter models.Counter) error {
	db := r.getDB(ctx)
	row := models.NewCounterRecord(counter)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      clause.Expr{SQL: "EXCLUDED.value"},
			"updated_at": clause.Expr{SQL: "EXCLUDED.updated_at"},
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save counter %q: %w", counter.ID(), err)
	}
	return nil
}
