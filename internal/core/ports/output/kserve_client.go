package ports

import "context"

// KServeStatus represents the status of a KServe InferenceService
type KServeStatus struct {
	URL   string
	Ready bool
	Error string
}

// KServeClient defines the contract for reading KServe InferenceServices
// that host detection models.
type KServeClient interface {
	// GetStatus retrieves current deployment status from Kubernetes
	GetStatus(ctx context.Context, namespace, name string) (*KServeStatus, error)

	// IsAvailable checks if KServe integration is enabled and configured
	IsAvailable() bool
}

// EndpointResolver yields the base URL a remote detector should call.
type EndpointResolver interface {
	Endpoint(ctx context.Context) (string, error)
}
