package businessflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/counter-clean-arch/app/dto"
	"github.com/amirphl/counter-clean-arch/models"
	"github.com/amirphl/counter-clean-arch/repository"
	"github.com/amirphl/counter-clean-arch/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCounterRepository struct {
	mock.Mock
}

func (m *mockCounterRepository) ByID(ctx context.Context, id string) (*models.Counter, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*models.Counter)
	return c, args.Error(1)
}

func (m *mockCounterRepository) GetDefault(ctx context.Context) (*models.Counter, error) {
	args := m.Called(ctx)
	c, _ := args.Get(0).(*models.Counter)
	return c, args.Error(1)
}

func (m *mockCounterRepository) Save(ctx context.Context, counter models.Counter) error {
	args := m.Called(ctx, counter)
	return args.Error(0)
}

func counterPtr(id string, value int64) *models.Counter {
	c := models.NewCounter(models.CounterProps{ID: id, Value: value})
	return &c
}

func hasValue(id string, value int64) any {
	return mock.MatchedBy(func(c models.Counter) bool {
		return c.ID() == id && c.Value() == value
	})
}

func TestGetCounterFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyStoreYieldsDefault", func(t *testing.T) {
		flow := NewGetCounterFlow(repository.NewMemoryCounterRepository())

		resp, err := flow.Execute(ctx, &dto.GetCounterRequest{})
		require.NoError(t, err)
		assert.Equal(t, models.DefaultCounterID, resp.Counter.ID())
		assert.Equal(t, int64(0), resp.Counter.Value())
	})

	t.Run("NilRequestYieldsDefault", func(t *testing.T) {
		repo := &mockCounterRepository{}
		repo.On("GetDefault", ctx).Return(counterPtr(models.DefaultCounterID, 3), nil)

		resp, err := NewGetCounterFlow(repo).Execute(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(3), resp.Counter.Value())
		repo.AssertExpectations(t)
	})

	t.Run("EmptyIDIsTreatedAsOmitted", func(t *testing.T) {
		repo := &mockCounterRepository{}
		repo.On("GetDefault", ctx).Return(counterPtr(models.DefaultCounterID, 0), nil)

		_, err := NewGetCounterFlow(repo).Execute(ctx, &dto.GetCounterRequest{CounterID: utils.ToPtr("")})
		require.NoError(t, err)
		repo.AssertNotCalled(t, "ByID", mock.Anything, mock.Anything)
	})

	t.Run("ExplicitID", func(t *testing.T) {
		repo := &mockCounterRepository{}
		repo.On("ByID", ctx, "custom").Return(counterPtr("custom", 5), nil)

		resp, err := NewGetCounterFlow(repo).Execute(ctx, &dto.GetCounterRequest{CounterID: utils.ToPtr("custom")})
		require.NoError(t, err)
		assert.Equal(t, "custom", resp.Counter.ID())
		assert.Equal(t, int64(5), resp.Counter.Value())
		repo.AssertNotCalled(t, "GetDefault", mock.Anything)
	})

	t.Run("MissingIDIsNotFound", func(t *testing.T) {
		flow := NewGetCounterFlow(repository.NewMemoryCounterRepository())

		resp, err := flow.Execute(ctx, &dto.GetCounterRequest{CounterID: utils.ToPtr("missing")})
		assert.Nil(t, resp)
		require.Error(t, err)
		assert.True(t, IsCounterNotFound(err))
		assert.Contains(t, err.Error(), "missing")

		id, ok := CounterIDFromError(err)
		assert.True(t, ok)
		assert.Equal(t, "missing", id)

		code, ok := BusinessErrorCode(err)
		assert.True(t, ok)
		assert.Equal(t, "COUNTER_NOT_FOUND", code)
	})

	t.Run("StorageErrorPropagates", func(t *testing.T) {
		errDisk := errors.New("disk unavailable")
		repo := &mockCounterRepository{}
		repo.On("GetDefault", ctx).Return(nil, errDisk)

		_, err := NewGetCounterFlow(repo).Execute(ctx, &dto.GetCounterRequest{})
		assert.ErrorIs(t, err, errDisk)
		assert.False(t, IsCounterNotFound(err))
	})
}

func TestIncrementCounterFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("DefaultAmountIsOne", func(t *testing.T) {
		repo := &mockCounterRepository{}
		repo.On("ByID", ctx, "custom").Return(counterPtr("custom", 5), nil)
		repo.On("Save", ctx, hasValue("custom", 6)).Return(nil)

		flow := NewIncrementCounterFlow(repo, nil, nil)
		resp, err := flow.Execute(ctx, &dto.IncrementCounterRequest{CounterID: utils.ToPtr("custom")})
		require.NoError(t, err)
		assert.Equal(t, "custom", resp.Counter.ID())
		assert.Equal(t, int64(6), resp.Counter.Value())
		repo.AssertExpectations(t)
	})

	t.Run("ExplicitAmount", func(t *testing.T) {
		repo := &mockCounterRepository{}
		repo.On("ByID", ctx, "custom").Return(counterPtr("custom", 7), nil)
		repo.On("Save", ctx, hasValue("custom", 10)).Return(nil)

		flow := NewIncrementCounterFlow(repo, nil, nil)
		resp, err := flow.Execute(ctx, &dto.IncrementCounterRequest{
			CounterID: utils.ToPtr("custom"),
			Amount:    utils.ToPtr(int64(3)),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(10), resp.Counter.Value())
		repo.AssertExpectations(t)
	})

	t.Run("NegativeAmountIsNotClamped", func(t *testing.T) {
		repo := repository.NewMemoryCounterRepository(models.NewCounter(models.CounterProps{ID: "custom", Value: 2}))

		resp, err := NewIncrementCounterFlow(repo, nil, nil).Execute(ctx, &dto.IncrementCounterRequest{
			CounterID: utils.ToPtr("custom"),
			Amount:    utils.ToPtr(int64(-100)),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(-98), resp.Counter.Value())
	})

	t.Run("DefaultCounterIsCreatedAndIncremented", func(t *testing.T) {
		repo := repository.NewMemoryCounterRepository()
		flow := NewIncrementCounterFlow(repo, nil, nil)

		_, err := flow.Execute(ctx, nil)
		require.NoError(t, err)
		resp, err := flow.Execute(ctx, &dto.IncrementCounterRequest{})
		require.NoError(t, err)
		assert.Equal(t, models.DefaultCounterID, resp.Counter.ID())
		assert.Equal(t, int64(2), resp.Counter.Value())
	})

	t.Run("PreservesIdentityAndCreatedAt", func(t *testing.T) {
		created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		stored := models.NewCounter(models.CounterProps{ID: "custom", Value: 1, CreatedAt: &created, UpdatedAt: &created})
		repo := repository.NewMemoryCounterRepository(stored)

		before := time.Now().UTC()
		resp, err := NewIncrementCounterFlow(repo, nil, nil).Execute(ctx, &dto.IncrementCounterRequest{CounterID: utils.ToPtr("custom")})
		require.NoError(t, err)
		assert.True(t, resp.Counter.Equals(stored))
		assert.Equal(t, created, resp.Counter.CreatedAt())
		assert.False(t, resp.Counter.UpdatedAt().Before(before))
	})

	t.Run("MissingIDIsNotFoundAndNothingSaved", func(t *testing.T) {
		repo := &mockCounterRepository{}
		repo.On("ByID", ctx, "missing").Return(nil, nil)

		_, err := NewIncrementCounterFlow(repo, nil, nil).Execute(ctx, &dto.IncrementCounterRequest{CounterID: utils.ToPtr("missing")})
		assert.True(t, IsCounterNotFound(err))
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("SaveErrorPropagates", func(t *testing.T) {
		errWrite := errors.New("read-only file system")
		repo := &mockCounterRepository{}
		repo.On("GetDefault", ctx).Return(counterPtr(models.DefaultCounterID, 0), nil)
		repo.On("Save", ctx, mock.Anything).Return(errWrite)

		resp, err := NewIncrementCounterFlow(repo, nil, nil).Execute(ctx, &dto.IncrementCounterRequest{})
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, errWrite)
	})
}

func TestDecrementCounterFlow(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		start  int64
		amount *int64
		want   int64
	}{
		{"default amount", 5, nil, 4},
		{"explicit amount", 5, utils.ToPtr(int64(2)), 3},
		{"clamped at zero", 2, utils.ToPtr(int64(10)), 0},
		{"zero stays zero", 0, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.NewMemoryCounterRepository(models.NewCounter(models.CounterProps{ID: "c", Value: tt.start}))
			resp, err := NewDecrementCounterFlow(repo, nil, nil).Execute(ctx, &dto.DecrementCounterRequest{
				CounterID: utils.ToPtr("c"),
				Amount:    tt.amount,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Counter.Value())

			stored, err := repo.ByID(ctx, "c")
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored.Value())
		})
	}

	t.Run("NegativeAmountRejected", func(t *testing.T) {
		repo := &mockCounterRepository{}
		_, err := NewDecrementCounterFlow(repo, nil, nil).Execute(ctx, &dto.DecrementCounterRequest{Amount: utils.ToPtr(int64(-1))})
		assert.True(t, IsInvalidAmount(err))
		repo.AssertNotCalled(t, "GetDefault", mock.Anything)
	})
}

func TestResetCounterFlow(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryCounterRepository(models.NewCounter(models.CounterProps{ID: "c", Value: 99}))

	resp, err := NewResetCounterFlow(repo, nil, nil).Execute(ctx, &dto.ResetCounterRequest{CounterID: utils.ToPtr("c")})
	require.NoError(t, err)
	assert.Equal(t, int64(0), resp.Counter.Value())

	_, err = NewResetCounterFlow(repo, nil, nil).Execute(ctx, &dto.ResetCounterRequest{CounterID: utils.ToPtr("other")})
	assert.True(t, IsCounterNotFound(err))
}

// barrierRepository holds every ByID call until n readers have arrived, so
// concurrent increments all observe the same starting value.
type barrierRepository struct {
	*repository.MemoryCounterRepository
	arrived sync.WaitGroup
}

func (r *barrierRepository) ByID(ctx context.Context, id string) (*models.Counter, error) {
	c, err := r.MemoryCounterRepository.ByID(ctx, id)
	r.arrived.Done()
	r.arrived.Wait()
	return c, err
}

func TestIncrementCounterFlowLostUpdateWithoutLocker(t *testing.T) {
	ctx := context.Background()
	repo := &barrierRepository{
		MemoryCounterRepository: repository.NewMemoryCounterRepository(models.NewCounter(models.CounterProps{ID: "c", Value: 10})),
	}
	repo.arrived.Add(2)
	flow := NewIncrementCounterFlow(repo, NoopLocker{}, nil)

	var wg sync.WaitGroup
	results := make([]int64, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := flow.Execute(ctx, &dto.IncrementCounterRequest{CounterID: utils.ToPtr("c")})
			if assert.NoError(t, err) {
				results[i] = resp.Counter.Value()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, []int64{11, 11}, results)
	stored, err := repo.MemoryCounterRepository.ByID(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(11), stored.Value())
}

func TestIncrementCounterFlowWithLocalLocker(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryCounterRepository(models.NewCounter(models.CounterProps{ID: "c", Value: 10}))
	flow := NewIncrementCounterFlow(repo, NewLocalCounterLocker(), nil)

	const n = 100
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := flow.Execute(ctx, &dto.IncrementCounterRequest{CounterID: utils.ToPtr("c")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := repo.ByID(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(10+n), stored.Value())
}
