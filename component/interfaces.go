package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component represents a process-wide service with a lifecycle, such as a
// local Appium server shared by every scenario of a run.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start initializes and starts the component.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the component and releases resources.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Description holds summary information logged when a component starts.
type Description struct {
	// Type categorizes the component: "appium", "telemetry", etc.
	Type string
	// Details is a human-readable one-liner, e.g. "127.0.0.1:4723 pid=4242".
	Details string
}

// Describable is optionally implemented by Components that report how they
// are configured once started.
type Describable interface {
	Describe() Description
}
