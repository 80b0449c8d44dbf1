package as726x

import (
	"context"
	"fmt"
	"testing"
)

func TestMockColorSensor_StaticValue(t *testing.T) {
	sensor := NewMockColorSensor(func(ctx context.Context, illuminate bool) (Reading, error) {
		return Reading{100, 200, 300, 400, 500, 600}, nil
	})

	r, err := sensor.Measure(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != (Reading{100, 200, 300, 400, 500, 600}) {
		t.Errorf("unexpected reading: %v", r)
	}
}

func TestMockColorSensor_Illumination(t *testing.T) {
	// Brighter when the bulb is on
	sensor := NewMockColorSensor(func(ctx context.Context, illuminate bool) (Reading, error) {
		if illuminate {
			return Reading{1000, 1000, 1000, 1000, 1000, 1000}, nil
		}
		return Reading{10, 10, 10, 10, 10, 10}, nil
	})

	ctx := context.Background()
	dark, err := sensor.Measure(ctx, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lit, err := sensor.Measure(ctx, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lit[0] <= dark[0] {
		t.Errorf("expected illuminated reading to be higher, got %d and %d", lit[0], dark[0])
	}
}

func TestMockColorSensor_ErrorHandling(t *testing.T) {
	sensor := NewMockColorSensor(func(ctx context.Context, illuminate bool) (Reading, error) {
		return Reading{}, fmt.Errorf("sensor malfunction")
	})

	_, err := sensor.Measure(context.Background(), true)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err.Error() != "sensor malfunction" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestMockColorSensor_ContextUsage(t *testing.T) {
	type key struct{}
	var received any

	sensor := NewMockColorSensor(func(ctx context.Context, illuminate bool) (Reading, error) {
		received = ctx.Value(key{})
		return Reading{}, nil
	})

	ctx := context.WithValue(context.Background(), key{}, "value")
	if _, err := sensor.Measure(ctx, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if received != "value" {
		t.Errorf("context was not passed through, got %v", received)
	}
}
