package dto

import (
	"github.com/amirphl/counter-clean-arch/models"
	"github.com/amirphl/counter-clean-arch/utils"
)

// GetCounterRequest selects a counter; a nil or empty CounterID means the default counter
type GetCounterRequest struct {
	CounterID *string `json:"counter_id,omitempty" validate:"omitempty,max=128"`
}

// IncrementCounterRequest selects a counter and the amount to add (default 1)
type IncrementCounterRequest struct {
	CounterID *string `json:"counter_id,omitempty" validate:"omitempty,max=128"`
	Amount    *int64  `json:"amount,omitempty"`
}

// DecrementCounterRequest selects a counter and the amount to subtract (default 1)
type DecrementCounterRequest struct {
	CounterID *string `json:"counter_id,omitempty" validate:"omitempty,max=128"`
	Amount    *int64  `json:"amount,omitempty" validate:"omitempty,min=0"`
}

// ResetCounterRequest selects the counter to reset
type ResetCounterRequest struct {
	CounterID *string `json:"counter_id,omitempty" validate:"omitempty,max=128"`
}

// CounterAmountBody is the optional JSON body of the increment and decrement endpoints
type CounterAmountBody struct {
	Amount *int64 `json:"amount,omitempty"`
}

// CounterResponse is what every counter use case returns
type CounterResponse struct {
	Counter models.Counter
}

// CounterDTO is the wire shape of a counter
type CounterDTO struct {
	ID        string `json:"id"`
	Value     int64  `json:"value"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ToCounterDTO renders a counter with RFC3339Nano UTC timestamps
func ToCounterDTO(c models.Counter) CounterDTO {
	return CounterDTO{
		ID:        c.ID(),
		Value:     c.Value(),
		CreatedAt: utils.FormatTimestamp(c.CreatedAt()),
		UpdatedAt: utils.FormatTimestamp(c.UpdatedAt()),
	}
}

// ToCounter parses the wire shape back into a counter
func (d CounterDTO) ToCounter() (models.Counter, error) {
	createdAt, err := utils.ParseTimestamp(d.CreatedAt)
	if err != nil {
		return models.Counter{}, err
	}
	updatedAt, err := utils.ParseTimestamp(d.UpdatedAt)
	if err != nil {
		return models.Counter{}, err
	}
	return models.NewCounter(models.CounterProps{
		ID:        d.ID,
		Value:     d.Value,
		CreatedAt: &createdAt,
		UpdatedAt: &updatedAt,
	}), nil
}

// CounterEnvelope is the Data payload of a counter API response
type CounterEnvelope struct {
	Counter CounterDTO `json:"counter"`
}
