package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amirphl/counter-clean-arch/app/dto"
	"github.com/amirphl/counter-clean-arch/app/handlers"
	businessflow "github.com/amirphl/counter-clean-arch/business_flow"
	"github.com/amirphl/counter-clean-arch/models"
	"github.com/amirphl/counter-clean-arch/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Counter dto.CounterDTO `json:"counter"`
	} `json:"data"`
	Error struct {
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type failingRepository struct {
	err error
}

func (r failingRepository) ByID(context.Context, string) (*models.Counter, error) { return nil, r.err }
func (r failingRepository) GetDefault(context.Context) (*models.Counter, error)   { return nil, r.err }
func (r failingRepository) Save(context.Context, models.Counter) error             { return r.err }

type busyLocker struct{}

func (busyLocker) Lock(_ context.Context, id string) (func(), error) {
	return nil, businessflow.NewBusinessErrorf("COUNTER_BUSY", "counter %s is busy", businessflow.ErrCounterLocked, id)
}

func newTestApp(repo repository.CounterRepository, locker businessflow.CounterLocker, maxAmount int64) *fiber.App {
	h := handlers.NewCounterHandler(
		businessflow.NewGetCounterFlow(repo),
		businessflow.NewIncrementCounterFlow(repo, locker, nil),
		businessflow.NewDecrementCounterFlow(repo, locker, nil),
		businessflow.NewResetCounterFlow(repo, locker, nil),
		nil,
		time.Second,
		maxAmount,
	)

	app := fiber.New()
	app.Get("/counter", h.Get)
	app.Post("/counter/increment", h.Increment)
	app.Post("/counter/decrement", h.Decrement)
	app.Post("/counter/reset", h.Reset)
	app.Get("/counters/:id", h.Get)
	app.Post("/counters/:id/increment", h.Increment)
	app.Post("/counters/:id/decrement", h.Decrement)
	app.Post("/counters/:id/reset", h.Reset)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, apiResponse) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestCounterHandler_Get(t *testing.T) {
	t.Run("DefaultCounterOnEmptyStore", func(t *testing.T) {
		app := newTestApp(repository.NewMemoryCounterRepository(), nil, 0)

		status, resp := do(t, app, http.MethodGet, "/counter", "")
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, resp.Success)
		assert.Equal(t, models.DefaultCounterID, resp.Data.Counter.ID)
		assert.Equal(t, int64(0), resp.Data.Counter.Value)
		assert.NotEmpty(t, resp.Data.Counter.CreatedAt)
	})

	t.Run("NamedCounter", func(t *testing.T) {
		repo := repository.NewMemoryCounterRepository(models.NewCounter(models.CounterProps{ID: "visits", Value: 5}))
		app := newTestApp(repo, nil, 0)

		status, resp := do(t, app, http.MethodGet, "/counters/visits", "")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "visits", resp.Data.Counter.ID)
		assert.Equal(t, int64(5), resp.Data.Counter.Value)
	})

	t.Run("MissingCounter", func(t *testing.T) {
		app := newTestApp(repository.NewMemoryCounterRepository(), nil, 0)

		status, resp := do(t, app, http.MethodGet, "/counters/missing", "")
		assert.Equal(t, http.StatusNotFound, status)
		assert.False(t, resp.Success)
		assert.Equal(t, "COUNTER_NOT_FOUND", resp.Error.Code)
		assert.Equal(t, "Counter with id missing not found", resp.Message)
		assert.JSONEq(t, `{"counter_id":"missing"}`, string(resp.Error.Details))
	})

	t.Run("IDTooLong", func(t *testing.T) {
		app := newTestApp(repository.NewMemoryCounterRepository(), nil, 0)

		status, resp := do(t, app, http.MethodGet, "/counters/"+strings.Repeat("x", 129), "")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	})
}

func TestCounterHandler_Increment(t *testing.T) {
	t.Run("DefaultAmount", func(t *testing.T) {
		repo := repository.NewMemoryCounterRepository(models.NewCounter(models.CounterProps{ID: "c", Value: 5}))
		app := newTestApp(repo, nil, 0)

		status, resp := do(t, app, http.MethodPost, "/counters/c/increment", "")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, int64(6), resp.Data.Counter.Value)

		stored, err := repo.ByID(context.Background(), "c")
		require.NoError(t, err)
		assert.Equal(t, int64(6), stored.Value())
	})

	t.Run("ExplicitAmount", func(t *testing.T) {
		repo := repository.NewMemoryCounterRepository(models.NewCounter(models.CounterProps{ID: "c", Value: 7}))
		app := newTestApp(repo, nil, 0)

		status, resp := do(t, app, http.MethodPost, "/counters/c/increment", `{"amount":3}`)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, int64(10), resp.Data.Counter.Value)
	})

	t.Run("NegativeAmountIsNotClamped", func(t *testing.T) {
		app := newTestApp(repository.NewMemoryCounterRepository(), nil, 0)

		status, resp := do(t, app, http.MethodPost, "/counter/increment", `{"amount":-4}`)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, int64(-4), resp.Data.Counter.Value)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		app := newTestApp(repository.NewMemoryCounterRepository(), nil, 0)

		status, resp := do(t, app, http.MethodPost, "/counter/increment", `{"amount":"many"}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)
	})

	t.Run("AmountAboveMax", func(t *testing.T) {
		app := newTestApp(repository.NewMemoryCounterRepository(), nil, 100)

		status, resp := do(t, app, http.MethodPost, "/counter/increment", `{"amount":101}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	})

	t.Run("MissingCounterIsNotCreated", func(t *testing.T) {
		repo := repository.NewMemoryCounterRepository()
		app := newTestApp(repo, nil, 0)

		status, resp := do(t, app, http.MethodPost, "/counters/missing/increment", "")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "COUNTER_NOT_FOUND", resp.Error.Code)
		assert.Equal(t, 0, repo.Len())
	})

	t.Run("Busy", func(t *testing.T) {
		app := newTestApp(repository.NewMemoryCounterRepository(), busyLocker{}, 0)

		status, resp := do(t, app, http.MethodPost, "/counter/increment", "")
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "COUNTER_BUSY", resp.Error.Code)
	})
}

func TestCounterHandler_Decrement(t *testing.T) {
	tests := []struct {
		name   string
		start  int64
		body   string
		status int
		want   int64
	}{
		{"DefaultAmount", 5, "", http.StatusOK, 4},
		{"ClampsAtZero", 2, `{"amount":5}`, http.StatusOK, 0},
		{"ZeroStaysZero", 0, "", http.StatusOK, 0},
		{"NegativeAmountRejected", 5, `{"amount":-1}`, http.StatusBadRequest, 5},
		{"HugeAmountOnNegativeValueClampsAtZero", -2, `{"amount":9223372036854775807}`, http.StatusOK, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.NewMemoryCounterRepository(models.NewCounter(models.CounterProps{ID: "c", Value: tt.start}))
			app := newTestApp(repo, nil, 0)

			status, _ := do(t, app, http.MethodPost, "/counters/c/decrement", tt.body)
			assert.Equal(t, tt.status, status)

			stored, err := repo.ByID(context.Background(), "c")
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored.Value())
		})
	}
}

func TestCounterHandler_Reset(t *testing.T) {
	repo := repository.NewMemoryCounterRepository(models.NewCounter(models.CounterProps{ID: "c", Value: 42}))
	app := newTestApp(repo, nil, 0)

	status, resp := do(t, app, http.MethodPost, "/counters/c/reset", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(0), resp.Data.Counter.Value)
	assert.Equal(t, "c", resp.Data.Counter.ID)
}

func TestCounterHandler_StorageFailure(t *testing.T) {
	app := newTestApp(failingRepository{err: errors.New("disk on fire")}, nil, 0)

	for _, path := range []string{"/counter/increment", "/counter/decrement", "/counter/reset"} {
		status, resp := do(t, app, http.MethodPost, path, "")
		assert.Equal(t, http.StatusInternalServerError, status, path)
		assert.Equal(t, "COUNTER_STORAGE_FAILED", resp.Error.Code, path)
		assert.NotContains(t, resp.Message, "disk on fire", path)
	}

	status, resp := do(t, app, http.MethodGet, "/counter", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "COUNTER_STORAGE_FAILED", resp.Error.Code)
}

func TestCounterHandler_Timeout(t *testing.T) {
	app := newTestApp(failingRepository{err: context.DeadlineExceeded}, nil, 0)

	status, resp := do(t, app, http.MethodGet, "/counter", "")
	assert.Equal(t, http.StatusGatewayTimeout, status)
	assert.Equal(t, "REQUEST_TIMEOUT", resp.Error.Code)
}
