package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/counter-clean-arch/models"
	"github.com/amirphl/counter-clean-arch/repository"
	testingutil "github.com/amirphl/counter-clean-arch/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterRepository(t *testing.T) {
	testDB := testingutil.RequirePostgres(t)
	repo := repository.NewCounterRepository(testDB.DB)
	fixtures := testingutil.NewTestFixtures(testDB)
	ctx := testingutil.CreateTestContext()

	t.Run("ByIDNotFound", func(t *testing.T) {
		c, err := repo.ByID(ctx, "missing")
		assert.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("ByID", func(t *testing.T) {
		row, err := fixtures.CreateTestCounter("custom", 5)
		require.NoError(t, err)

		c, err := repo.ByID(ctx, "custom")
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, "custom", c.ID())
		assert.Equal(t, int64(5), c.Value())
		assert.WithinDuration(t, row.CreatedAt, c.CreatedAt(), time.Millisecond)
	})

	t.Run("GetDefaultCreatesZeroRow", func(t *testing.T) {
		require.NoError(t, testDB.ClearAllTables())

		c, err := repo.GetDefault(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.DefaultCounterID, c.ID())
		assert.Equal(t, int64(0), c.Value())

		again, err := repo.GetDefault(ctx)
		require.NoError(t, err)
		assert.WithinDuration(t, c.CreatedAt(), again.CreatedAt(), time.Millisecond)

		n, err := fixtures.CountRows()
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("GetDefaultConcurrentFirstReads", func(t *testing.T) {
		require.NoError(t, testDB.ClearAllTables())

		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.GetDefault(ctx)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.NoError(t, err)
		}

		n, err := fixtures.CountRows()
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("SaveInsertsThenUpdates", func(t *testing.T) {
		created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, repo.Save(ctx, testingutil.NewCounterAt("saved", 1, created)))

		c, err := repo.ByID(ctx, "saved")
		require.NoError(t, err)
		assert.Equal(t, int64(1), c.Value())

		next := c.Increment(9)
		require.NoError(t, repo.Save(ctx, next))

		c, err = repo.ByID(ctx, "saved")
		require.NoError(t, err)
		assert.Equal(t, int64(10), c.Value())
		assert.True(t, created.Equal(c.CreatedAt()))
		assert.WithinDuration(t, next.UpdatedAt(), c.UpdatedAt(), time.Millisecond)
	})

	t.Run("SaveIgnoresIncomingCreatedAtOnUpdate", func(t *testing.T) {
		_, err := fixtures.CreateTestCounter("keep", 2)
		require.NoError(t, err)
		before, err := repo.ByID(ctx, "keep")
		require.NoError(t, err)

		require.NoError(t, repo.Save(ctx, testingutil.NewCounterAt("keep", 3, time.Now().UTC())))

		after, err := repo.ByID(ctx, "keep")
		require.NoError(t, err)
		assert.Equal(t, int64(3), after.Value())
		assert.True(t, before.CreatedAt().Equal(after.CreatedAt()))
	})

	t.Run("TransactionRollback", func(t *testing.T) {
		errBoom := errors.New("boom")
		err := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
			if err := repo.Save(txCtx, models.NewCounter(models.CounterProps{ID: "tx", Value: 1})); err != nil {
				return err
			}
			return errBoom
		})
		assert.ErrorIs(t, err, errBoom)

		c, err := repo.ByID(ctx, "tx")
		assert.NoError(t, err)
		assert.Nil(t, c)
	})
}
