package remote

import (
	"context"

	"github.com/Icestreamm/baseer-backend/internal/core/domain"
	output "github.com/Icestreamm/baseer-backend/internal/core/ports/output"
)

// StaticEndpoint resolves to a fixed URL.
type StaticEndpoint string

var _ output.EndpointResolver = StaticEndpoint("")

func (e StaticEndpoint) Endpoint(context.Context) (string, error) {
	if e == "" {
		return "", domain.ErrEndpointNotReady
	}
	return string(e), nil
}
