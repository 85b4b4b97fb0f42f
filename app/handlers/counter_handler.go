package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/amirphl/counter-clean-arch/app/dto"
	"github.com/amirphl/counter-clean-arch/app/middleware"
	businessflow "github.com/amirphl/counter-clean-arch/business_flow"
	"github.com/amirphl/counter-clean-arch/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"go.uber.org/zap"
)

// CounterHandlerInterface defines the contract for counter handlers
type CounterHandlerInterface interface {
	Get(c fiber.Ctx) error
	Increment(c fiber.Ctx) error
	Decrement(c fiber.Ctx) error
	Reset(c fiber.Ctx) error
}

// CounterHandler serves the counter endpoints. Routes without an :id parameter
// operate on the default counter.
type CounterHandler struct {
	getFlow        businessflow.GetCounterFlow
	incrementFlow  businessflow.IncrementCounterFlow
	decrementFlow  businessflow.DecrementCounterFlow
	resetFlow      businessflow.ResetCounterFlow
	validator      *validator.Validate
	logger         *zap.Logger
	requestTimeout time.Duration
	maxAmount      int64
}

func (h *CounterHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CounterHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewCounterHandler creates a new counter handler. maxAmount of zero leaves
// amounts unbounded.
func NewCounterHandler(
	getFlow businessflow.GetCounterFlow,
	incrementFlow businessflow.IncrementCounterFlow,
	decrementFlow businessflow.DecrementCounterFlow,
	resetFlow businessflow.ResetCounterFlow,
	logger *zap.Logger,
	requestTimeout time.Duration,
	maxAmount int64,
) *CounterHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if requestTimeout <= 0 {
		requestTimeout = utils.DefaultRequestTimeout
	}
	return &CounterHandler{
		getFlow:        getFlow,
		incrementFlow:  incrementFlow,
		decrementFlow:  decrementFlow,
		resetFlow:      resetFlow,
		validator:      validator.New(),
		logger:         logger,
		requestTimeout: requestTimeout,
		maxAmount:      maxAmount,
	}
}

// Get Counter
// @Summary Get counter
// @Description Return the default counter, or the counter named by id. The default counter is created on first read.
// @Tags Counter
// @Produce json
// @Param id path string false "Counter id"
// @Success 200 {object} dto.APIResponse{data=dto.CounterEnvelope} "Counter retrieved successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Counter not found"
// @Failure 500 {object} dto.APIResponse "Storage failure"
// @Router /api/v1/counter [get]
// @Router /api/v1/counters/{id} [get]
func (h *CounterHandler) Get(c fiber.Ctx) error {
	req := dto.GetCounterRequest{CounterID: counterIDParam(c)}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	result, err := h.getFlow.Execute(ctx, &req)
	if err != nil {
		return h.handleFlowError(c, "get", err)
	}
	return h.respondCounter(c, "get", "Counter retrieved successfully", result)
}

// Increment Counter
// @Summary Increment counter
// @Description Add amount (default 1) to the counter. Negative amounts lower the value without clamping.
// @Tags Counter
// @Accept json
// @Produce json
// @Param id path string false "Counter id"
// @Param request body dto.CounterAmountBody false "Amount to add"
// @Success 200 {object} dto.APIResponse{data=dto.CounterEnvelope} "Counter incremented successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Counter not found"
// @Failure 409 {object} dto.APIResponse "Counter busy"
// @Failure 500 {object} dto.APIResponse "Storage failure"
// @Router /api/v1/counter/increment [post]
// @Router /api/v1/counters/{id}/increment [post]
func (h *CounterHandler) Increment(c fiber.Ctx) error {
	amount, ok, err := h.parseAmount(c)
	if !ok {
		return err
	}
	req := dto.IncrementCounterRequest{CounterID: counterIDParam(c), Amount: amount}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	result, err := h.incrementFlow.Execute(ctx, &req)
	if err != nil {
		return h.handleFlowError(c, "increment", err)
	}
	return h.respondCounter(c, "increment", "Counter incremented successfully", result)
}

// Decrement Counter
// @Summary Decrement counter
// @Description Subtract amount (default 1) from the counter. The value never drops below zero.
// @Tags Counter
// @Accept json
// @Produce json
// @Param id path string false "Counter id"
// @Param request body dto.CounterAmountBody false "Amount to subtract"
// @Success 200 {object} dto.APIResponse{data=dto.CounterEnvelope} "Counter decremented successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Counter not found"
// @Failure 409 {object} dto.APIResponse "Counter busy"
// @Failure 500 {object} dto.APIResponse "Storage failure"
// @Router /api/v1/counter/decrement [post]
// @Router /api/v1/counters/{id}/decrement [post]
func (h *CounterHandler) Decrement(c fiber.Ctx) error {
	amount, ok, err := h.parseAmount(c)
	if !ok {
		return err
	}
	req := dto.DecrementCounterRequest{CounterID: counterIDParam(c), Amount: amount}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	result, err := h.decrementFlow.Execute(ctx, &req)
	if err != nil {
		return h.handleFlowError(c, "decrement", err)
	}
	return h.respondCounter(c, "decrement", "Counter decremented successfully", result)
}

// Reset Counter
// @Summary Reset counter
// @Description Set the counter back to zero
// @Tags Counter
// @Produce json
// @Param id path string false "Counter id"
// @Success 200 {object} dto.APIResponse{data=dto.CounterEnvelope} "Counter reset successfully"
// @Failure 404 {object} dto.APIResponse "Counter not found"
// @Failure 409 {object} dto.APIResponse "Counter busy"
// @Failure 500 {object} dto.APIResponse "Storage failure"
// @Router /api/v1/counter/reset [post]
// @Router /api/v1/counters/{id}/reset [post]
func (h *CounterHandler) Reset(c fiber.Ctx) error {
	req := dto.ResetCounterRequest{CounterID: counterIDParam(c)}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	result, err := h.resetFlow.Execute(ctx, &req)
	if err != nil {
		return h.handleFlowError(c, "reset", err)
	}
	return h.respondCounter(c, "reset", "Counter reset successfully", result)
}

// counterIDParam returns the percent-decoded :id route parameter, or nil on the
// default-counter routes. The value is cloned because fiber reuses the
// underlying buffer after the handler returns.
func counterIDParam(c fiber.Ctx) *string {
	id := strings.Clone(c.Params("id"))
	if id == "" {
		return nil
	}
	if decoded, err := url.PathUnescape(id); err == nil {
		id = decoded
	}
	return &id
}

// parseAmount reads the optional {"amount": n} body; an empty body means no
// amount. When ok is false the 400 response has been written and err is the
// result of writing it.
func (h *CounterHandler) parseAmount(c fiber.Ctx) (amount *int64, ok bool, err error) {
	if len(c.Body()) == 0 {
		return nil, true, nil
	}
	var body dto.CounterAmountBody
	if err := c.Bind().JSON(&body); err != nil {
		return nil, false, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if body.Amount != nil && h.maxAmount > 0 && (*body.Amount > h.maxAmount || *body.Amount < -h.maxAmount) {
		return nil, false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR",
			fmt.Sprintf("amount must be between -%d and %d", h.maxAmount, h.maxAmount))
	}
	return body.Amount, true, nil
}

// validate runs struct validation. When ok is false the 400 response has been
// written and err is the result of writing it.
func (h *CounterHandler) validate(c fiber.Ctx, req any) (ok bool, err error) {
	if err := h.validator.Struct(req); err != nil {
		var errorMessages []string
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			for _, e := range validationErrors {
				errorMessages = append(errorMessages, getValidationErrorMessage(e))
			}
		}
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", errorMessages)
	}
	return true, nil
}

func (h *CounterHandler) respondCounter(c fiber.Ctx, op, message string, result *dto.CounterResponse) error {
	middleware.RecordCounterOperation(op, middleware.ResultOK)
	middleware.ObserveCounterValue(result.Counter.ID(), result.Counter.Value())
	return h.SuccessResponse(c, fiber.StatusOK, message, dto.CounterEnvelope{
		Counter: dto.ToCounterDTO(result.Counter),
	})
}

func (h *CounterHandler) handleFlowError(c fiber.Ctx, op string, err error) error {
	switch {
	case businessflow.IsCounterNotFound(err):
		middleware.RecordCounterOperation(op, middleware.ResultNotFound)
		id, _ := businessflow.CounterIDFromError(err)
		return h.ErrorResponse(c, fiber.StatusNotFound, fmt.Sprintf("Counter with id %s not found", id), "COUNTER_NOT_FOUND", fiber.Map{
			"counter_id": id,
		})
	case businessflow.IsInvalidAmount(err):
		middleware.RecordCounterOperation(op, middleware.ResultInvalid)
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
	case businessflow.IsCounterLocked(err):
		middleware.RecordCounterOperation(op, middleware.ResultBusy)
		return h.ErrorResponse(c, fiber.StatusConflict, "Counter is being updated, retry shortly", "COUNTER_BUSY", nil)
	case errors.Is(err, context.DeadlineExceeded):
		middleware.RecordCounterOperation(op, middleware.ResultError)
		h.logger.Warn("counter operation timed out", zap.String("operation", op), zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusGatewayTimeout, "Counter storage did not respond in time", "REQUEST_TIMEOUT", nil)
	}

	middleware.RecordCounterOperation(op, middleware.ResultError)
	h.logger.Error("counter operation failed",
		zap.String("operation", op),
		zap.String("request_id", requestid.FromContext(c)),
		zap.Error(err))
	return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to access counter storage", "COUNTER_STORAGE_FAILED", nil)
}

// createRequestContext creates a context with request-scoped values and the configured timeout
func (h *CounterHandler) createRequestContext(c fiber.Ctx) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), h.requestTimeout)

	reqID := requestid.FromContext(c)

	endpoint := c.Path()
	if r := c.Route(); r != nil && r.Path != "" {
		endpoint = r.Path
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent")).
		WithRequestID(reqID).
		WithEndpoint(endpoint)
	return businessflow.ContextWithMetadata(ctx, metadata), cancel
}
