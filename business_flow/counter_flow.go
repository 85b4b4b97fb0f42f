package businessflow

import (
	"context"

	"github.com/amirphl/counter-clean-arch/app/dto"
	"github.com/amirphl/counter-clean-arch/models"
	"github.com/amirphl/counter-clean-arch/repository"
	"github.com/amirphl/counter-clean-arch/utils"
	"go.uber.org/zap"
)

// GetCounterFlow returns the named counter, or the default one when no id is given
type GetCounterFlow interface {
	Execute(ctx context.Context, req *dto.GetCounterRequest) (*dto.CounterResponse, error)
}

// IncrementCounterFlow adds an amount (default 1) to a counter and persists it
type IncrementCounterFlow interface {
	Execute(ctx context.Context, req *dto.IncrementCounterRequest) (*dto.CounterResponse, error)
}

// DecrementCounterFlow subtracts an amount (default 1) from a counter, never going below zero
type DecrementCounterFlow interface {
	Execute(ctx context.Context, req *dto.DecrementCounterRequest) (*dto.CounterResponse, error)
}

// ResetCounterFlow sets a counter back to zero
type ResetCounterFlow interface {
	Execute(ctx context.Context, req *dto.ResetCounterRequest) (*dto.CounterResponse, error)
}

// resolveCounter loads the counter named by id, or the default when id is nil or empty
func resolveCounter(ctx context.Context, repo repository.CounterRepository, id *string) (*models.Counter, error) {
	if id == nil || *id == "" {
		return repo.GetDefault(ctx)
	}
	c, err := repo.ByID(ctx, *id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, NewCounterNotFoundError(*id)
	}
	return c, nil
}

func lockKey(id *string) string {
	if id == nil || *id == "" {
		return models.DefaultCounterID
	}
	return *id
}

// counterMutation runs resolve, transform and save under the configured locker
type counterMutation struct {
	repo   repository.CounterRepository
	locker CounterLocker
	logger *zap.Logger
}

func newCounterMutation(repo repository.CounterRepository, locker CounterLocker, logger *zap.Logger) counterMutation {
	if locker == nil {
		locker = NoopLocker{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return counterMutation{repo: repo, locker: locker, logger: logger}
}

func (m counterMutation) apply(ctx context.Context, op string, id *string, transform func(models.Counter) models.Counter) (*dto.CounterResponse, error) {
	unlock, err := m.locker.Lock(ctx, lockKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := resolveCounter(ctx, m.repo, id)
	if err != nil {
		return nil, err
	}

	next := transform(*current)
	if err := m.repo.Save(ctx, next); err != nil {
		m.logger.Error("counter save failed",
			append(MetadataFromContext(ctx).logFields(),
				zap.String("operation", op),
				zap.String("counter_id", next.ID()),
				zap.Error(err))...)
		return nil, err
	}

	m.logger.Debug("counter updated",
		append(MetadataFromContext(ctx).logFields(),
			zap.String("operation", op),
			zap.String("counter_id", next.ID()),
			zap.Int64("from", current.Value()),
			zap.Int64("to", next.Value()))...)

	return &dto.CounterResponse{Counter: next}, nil
}

// GetCounterFlowImpl implements GetCounterFlow
type GetCounterFlowImpl struct {
	repo repository.CounterRepository
}

func NewGetCounterFlow(repo repository.CounterRepository) GetCounterFlow {
	return &GetCounterFlowImpl{repo: repo}
}

func (f *GetCounterFlowImpl) Execute(ctx context.Context, req *dto.GetCounterRequest) (*dto.CounterResponse, error) {
	if req == nil {
		req = &dto.GetCounterRequest{}
	}
	c, err := resolveCounter(ctx, f.repo, req.CounterID)
	if err != nil {
		return nil, err
	}
	return &dto.CounterResponse{Counter: *c}, nil
}

// IncrementCounterFlowImpl implements IncrementCounterFlow
type IncrementCounterFlowImpl struct {
	counterMutation
}

func NewIncrementCounterFlow(repo repository.CounterRepository, locker CounterLocker, logger *zap.Logger) IncrementCounterFlow {
	return &IncrementCounterFlowImpl{counterMutation: newCounterMutation(repo, locker, logger)}
}

func (f *IncrementCounterFlowImpl) Execute(ctx context.Context, req *dto.IncrementCounterRequest) (*dto.CounterResponse, error) {
	if req == nil {
		req = &dto.IncrementCounterRequest{}
	}
	amount := utils.Deref(req.Amount, 1)
	return f.apply(ctx, "increment", req.CounterID, func(c models.Counter) models.Counter {
		return c.Increment(amount)
	})
}

// DecrementCounterFlowImpl implements DecrementCounterFlow
type DecrementCounterFlowImpl struct {
	counterMutation
}

func NewDecrementCounterFlow(repo repository.CounterRepository, locker CounterLocker, logger *zap.Logger) DecrementCounterFlow {
	return &DecrementCounterFlowImpl{counterMutation: newCounterMutation(repo, locker, logger)}
}

func (f *DecrementCounterFlowImpl) Execute(ctx context.Context, req *dto.DecrementCounterRequest) (*dto.CounterResponse, error) {
	if req == nil {
		req = &dto.DecrementCounterRequest{}
	}
	amount := utils.Deref(req.Amount, 1)
	if amount < 0 {
		return nil, NewBusinessErrorf("INVALID_AMOUNT", "Decrement amount must not be negative, got %d", ErrInvalidAmount, amount)
	}
	return f.apply(ctx, "decrement", req.CounterID, func(c models.Counter) models.Counter {
		return c.Decrement(amount)
	})
}

// ResetCounterFlowImpl implements ResetCounterFlow
type ResetCounterFlowImpl struct {
	counterMutation
}

func NewResetCounterFlow(repo repository.CounterRepository, locker CounterLocker, logger *zap.Logger) ResetCounterFlow {
	return &ResetCounterFlowImpl{counterMutation: newCounterMutation(repo, locker, logger)}
}

func (f *ResetCounterFlowImpl) Execute(ctx context.Context, req *dto.ResetCounterRequest) (*dto.CounterResponse, error) {
	if req == nil {
		req = &dto.ResetCounterRequest{}
	}
	return f.apply(ctx, "reset", req.CounterID, models.Counter.Reset)
}
