package utils

type contextKey string

// ClientMetadataKey carries the caller metadata attached by handlers before calling into flows
const ClientMetadataKey contextKey = "client_metadata"
