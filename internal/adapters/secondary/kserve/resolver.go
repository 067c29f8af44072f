package kserve

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Icestreamm/baseer-backend/internal/core/domain"
	output "github.com/Icestreamm/baseer-backend/internal/core/ports/output"
)

const defaultResolveTTL = 30 * time.Second

// Resolver yields the URL of a ready InferenceService. Successful lookups are
// cached for ttl.
type Resolver struct {
	client    output.KServeClient
	namespace string
	name      string
	ttl       time.Duration

	mu      sync.Mutex
	url     string
	expires time.Time
	now     func() time.Time
}

var _ output.EndpointResolver = (*Resolver)(nil)

// NewResolver creates a Resolver for namespace/name.
func NewResolver(client output.KServeClient, namespace, name string, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = defaultResolveTTL
	}
	return &Resolver{
		client:    client,
		namespace: namespace,
		name:      name,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (r *Resolver) Endpoint(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.url != "" && r.now().Before(r.expires) {
		return r.url, nil
	}
	if r.client == nil || !r.client.IsAvailable() {
		return "", domain.ErrEndpointNotReady
	}

	status, err := r.client.GetStatus(ctx, r.namespace, r.name)
	if err != nil {
		return "", err
	}
	if !status.Ready || status.URL == "" {
		r.url = ""
		if status.Error != "" {
			return "", fmt.Errorf("%w: %s", domain.ErrEndpointNotReady, status.Error)
		}
		return "", domain.ErrEndpointNotReady
	}

	r.url = status.URL
	r.expires = r.now().Add(r.ttl)
	return r.url, nil
}
