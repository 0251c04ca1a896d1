package health

import (
	"context"

	"github.com/vk/modhost/internal/modkit"
)

// Sampler produces one reading of the host performance metric per call.
type Sampler interface {
	Sample(ctx context.Context) (modkit.HealthSample, error)
}

// SamplerFunc adapts a plain function to the Sampler interface. Hosts that
// already track their own tick rate push it through one of these.
type SamplerFunc func(ctx context.Context) (modkit.HealthSample, error)

// Sample implements Sampler.
func (f SamplerFunc) Sample(ctx context.Context) (modkit.HealthSample, error) {
	return f(ctx)
}
