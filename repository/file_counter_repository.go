package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/amirphl/counter-clean-arch/models"
)

// FileCounterRepository keeps the default counter's value as a decimal string in
// a single file. Id and timestamps are not persisted, so every read yields a
// freshly timestamped default. There is no cross-process locking.
type FileCounterRepository struct {
	path string
}

func NewFileCounterRepository(path string) CounterRepository {
	return &FileCounterRepository{path: path}
}

// ByID resolves only the default id; the file holds no other counter
func (r *FileCounterRepository) ByID(ctx context.Context, id string) (*models.Counter, error) {
	if id != models.DefaultCounterID {
		return nil, nil
	}
	return r.GetDefault(ctx)
}

// GetDefault reads the stored value. A missing file or content that is not an
// integer yields zero. The file is not created on read.
func (r *FileCounterRepository) GetDefault(ctx context.Context) (*models.Counter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	value, err := r.readValue()
	if err != nil {
		return nil, err
	}
	c := models.NewCounter(models.CounterProps{ID: models.DefaultCounterID, Value: value})
	return &c, nil
}

func (r *FileCounterRepository) readValue() (int64, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read counter file %s: %w", r.path, err)
	}
	value, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, nil
	}
	return value, nil
}

// Save overwrites the file with the counter's value
func (r *FileCounterRepository) Save(ctx context.Context, counter models.Counter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.WriteFile(r.path, []byte(strconv.FormatInt(counter.Value(), 10)), 0o644); err != nil {
		return fmt.Errorf("failed to write counter file %s: %w", r.path, err)
	}
	return nil
}
