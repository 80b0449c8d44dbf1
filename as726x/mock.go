package as726x

import "context"

// Sensor is anything able to take a six channel measurement.
type Sensor interface {
	Measure(ctx context.Context, illuminate bool) (Reading, error)
}

var _ Sensor = &AS726x{}

// MeasureBehaviorFunc defines the function signature for color sensor behavior.
type MeasureBehaviorFunc func(ctx context.Context, illuminate bool) (Reading, error)

// MockColorSensor is a mock implementation of a color sensor that uses a behavior function
// to produce results without requiring any hardware.
type MockColorSensor struct {
	behavior MeasureBehaviorFunc
}

// NewMockColorSensor creates a new mock color sensor with the given behavior function.
// The behavior function is called whenever Measure is invoked.
//
// Example usage:
//
//	// Static value
//	sensor := NewMockColorSensor(func(ctx context.Context, illuminate bool) (Reading, error) {
//		return Reading{100, 200, 300, 400, 500, 600}, nil
//	})
//
//	// Error simulation
//	sensor := NewMockColorSensor(func(ctx context.Context, illuminate bool) (Reading, error) {
//		return Reading{}, fmt.Errorf("sensor malfunction")
//	})
func NewMockColorSensor(behavior MeasureBehaviorFunc) *MockColorSensor {
	return &MockColorSensor{
		behavior: behavior,
	}
}

// Measure returns the reading produced by the behavior function.
func (m *MockColorSensor) Measure(ctx context.Context, illuminate bool) (Reading, error) {
	return m.behavior(ctx, illuminate)
}
