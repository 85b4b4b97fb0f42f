// Package businessflow contains the core business logic and use cases of the counter service
package businessflow

import (
	"context"

	"github.com/amirphl/counter-clean-arch/utils"
	"go.uber.org/zap"
)

// ClientMetadata holds caller information attached to the request context for logging
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// WithRequestID sets the request ID
func (cm *ClientMetadata) WithRequestID(requestID string) *ClientMetadata {
	cm.RequestID = requestID
	return cm
}

// WithEndpoint sets the endpoint that produced the request
func (cm *ClientMetadata) WithEndpoint(endpoint string) *ClientMetadata {
	cm.Endpoint = endpoint
	return cm
}

// ContextWithMetadata stores metadata on ctx
func ContextWithMetadata(ctx context.Context, cm *ClientMetadata) context.Context {
	return context.WithValue(ctx, utils.ClientMetadataKey, cm)
}

// MetadataFromContext returns the metadata stored by ContextWithMetadata, or nil
func MetadataFromContext(ctx context.Context) *ClientMetadata {
	cm, _ := ctx.Value(utils.ClientMetadataKey).(*ClientMetadata)
	return cm
}

// logFields renders the metadata as zap fields; nil yields none
func (cm *ClientMetadata) logFields() []zap.Field {
	if cm == nil {
		return nil
	}
	fields := []zap.Field{
		zap.String("ip", cm.IPAddress),
		zap.String("user_agent", cm.UserAgent),
	}
	if cm.RequestID != "" {
		fields = append(fields, zap.String("request_id", cm.RequestID))
	}
	if cm.Endpoint != "" {
		fields = append(fields, zap.String("endpoint", cm.Endpoint))
	}
	return fields
}
