package compose

import (
	"reflect"
	"testing"

	"photoedit-backend/internal/params"
)

func TestComposeDefaultStackIsIdentity(t *testing.T) {
	d := Compose(params.DefaultStack())
	if !d.IsIdentity() {
		t.Fatalf("default stack composed to %d ops, want identity", len(d.Ops))
	}
}

func TestComposeDeterminism(t *testing.T) {
	noir := "noir"
	s := params.DefaultStack()
	s.Adjustments.Exposure = 30
	s.Adjustments.Contrast = -12
	s.Filter = params.Filter{ID: &noir, Intensity: 80, Warmth: 40}
	s.Transform.RotationDegrees = 5
	s.Transform.CropRatio = params.CropSquare

	a := Compose(s)
	b := Compose(s)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("compose not deterministic:\n%v\n%v", a, b)
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("fingerprints differ for identical descriptors")
	}
}

func TestComposeAdjustmentFactors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*params.Stack)
		wantKind OpKind
		wantVal  float64
	}{
		{
			name:     "exposure 20 gives brightness 1.10",
			mutate:   func(s *params.Stack) { s.Adjustments.Exposure = 20 },
			wantKind: OpBrightness,
			wantVal:  1.10,
		},
		{
			name:     "contrast -40 gives contrast 0.80",
			mutate:   func(s *params.Stack) { s.Adjustments.Contrast = -40 },
			wantKind: OpContrast,
			wantVal:  0.80,
		},
		{
			name:     "saturation 50 gives saturation 1.50",
			mutate:   func(s *params.Stack) { s.Adjustments.Saturation = 50 },
			wantKind: OpSaturation,
			wantVal:  1.50,
		},
		{
			name:     "temperature 40 gives warm tint 0.20",
			mutate:   func(s *params.Stack) { s.Adjustments.Temperature = 40 },
			wantKind: OpWarmTint,
			wantVal:  0.20,
		},
		{
			name:     "temperature -25 gives hue shift -5 degrees",
			mutate:   func(s *params.Stack) { s.Adjustments.Temperature = -25 },
			wantKind: OpHueShift,
			wantVal:  -5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := params.DefaultStack()
			tt.mutate(&s)
			d := Compose(s)
			if len(d.Ops) != 1 {
				t.Fatalf("got %d ops, want 1: %v", len(d.Ops), d.Ops)
			}
			op := d.Ops[0]
			if op.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", op.Kind, tt.wantKind)
			}
			if op.Value != tt.wantVal {
				t.Errorf("value = %v, want %v", op.Value, tt.wantVal)
			}
		})
	}
}

func TestComposeZeroAdjustmentsEmitNothing(t *testing.T) {
	s := params.DefaultStack()
	s.Adjustments.Exposure = 0
	s.Adjustments.Contrast = 0
	if d := Compose(s); !d.IsIdentity() {
		t.Fatalf("zero adjustments composed to %v", d.Ops)
	}
}

func TestComposeOpOrdering(t *testing.T) {
	vintage := "vintage"
	s := params.DefaultStack()
	s.Transform = params.Transform{
		RotationDegrees: 10,
		FlipH:           true,
		CropRatio:       params.CropWide,
	}
	s.Filter = params.Filter{ID: &vintage, Intensity: 100, Warmth: 50}
	s.Adjustments.Exposure = 10
	s.Mask.StrokeCount = 3

	d := Compose(s)
	want := []OpKind{OpRotate, OpFlipH, OpCrop, OpFilter, OpWarmTint, OpBrightness, OpMaskOverlay}
	if len(d.Ops) != len(want) {
		t.Fatalf("got %d ops %v, want %d", len(d.Ops), d.Ops, len(want))
	}
	for i, k := range want {
		if d.Ops[i].Kind != k {
			t.Errorf("op[%d] = %s, want %s", i, d.Ops[i].Kind, k)
		}
	}
}

func TestComposeFilterScaling(t *testing.T) {
	noir := "noir"
	s := params.DefaultStack()
	s.Filter = params.Filter{ID: &noir, Intensity: 60}

	d := Compose(s)
	if len(d.Ops) != 1 {
		t.Fatalf("got %d ops, want 1", len(d.Ops))
	}
	if d.Ops[0].Kind != OpFilter || d.Ops[0].Ref != "noir" || d.Ops[0].Value != 0.6 {
		t.Fatalf("filter op = %+v", d.Ops[0])
	}
}

func TestComposeClampsOutOfRangeInput(t *testing.T) {
	s := params.DefaultStack()
	s.Adjustments.Exposure = 500 // clamped to 100

	d := Compose(s)
	if len(d.Ops) != 1 || d.Ops[0].Value != 1.5 {
		t.Fatalf("got %v, want single brightness 1.5", d.Ops)
	}
}

func TestFingerprintDistinguishesStacks(t *testing.T) {
	a := params.DefaultStack()
	a.Adjustments.Exposure = 10
	b := params.DefaultStack()
	b.Adjustments.Exposure = 20
	if Compose(a).Fingerprint() == Compose(b).Fingerprint() {
		t.Fatal("different stacks share a fingerprint")
	}
}
