// Package params holds the uncommitted edit state for one session: four
// independent parameter groups (tonal adjustments, filter preset,
// crop/transform, mask) that the composition engine folds into a single
// render descriptor.
//
// Every field has a defined default such that an empty Stack composes to
// the identity descriptor. Out-of-range values are clamped at the boundary,
// never rejected — sliders are user-draggable and must never produce an
// unusable state.
package params

// Slider bounds. Bipolar sliders run -100..100, unipolar run 0..100.
const (
	BipolarMin  = -100.0
	BipolarMax  = 100.0
	UnipolarMin = 0.0
	UnipolarMax = 100.0

	RotationMin = -45.0
	RotationMax = 45.0
)

// CropRatio is the fixed set of aspect ratios the crop tool offers.
type CropRatio string

const (
	CropOriginal CropRatio = "original"
	CropSquare   CropRatio = "1:1"
	CropPortrait CropRatio = "4:5"
	CropWide     CropRatio = "16:9"
	CropStory    CropRatio = "9:16"
)

// ValidCropRatio reports whether r is one of the offered ratios.
func ValidCropRatio(r CropRatio) bool {
	switch r {
	case CropOriginal, CropSquare, CropPortrait, CropWide, CropStory:
		return true
	}
	return false
}

// BrushMode selects whether mask strokes add to or erase from the mask.
type BrushMode string

const (
	BrushAdd   BrushMode = "add"
	BrushErase BrushMode = "erase"
)

// OverlayColor tints the mask preview overlay.
type OverlayColor string

const (
	OverlayRed   OverlayColor = "red"
	OverlayGreen OverlayColor = "green"
	OverlayBlue  OverlayColor = "blue"
)

// Adjustments is the tonal slider group. Zero value == no visual change.
type Adjustments struct {
	Exposure    float64 `json:"exposure"`
	Contrast    float64 `json:"contrast"`
	Highlights  float64 `json:"highlights"`
	Shadows     float64 `json:"shadows"`
	Saturation  float64 `json:"saturation"`
	Vibrance    float64 `json:"vibrance"`
	Temperature float64 `json:"temperature"`
	Tint        float64 `json:"tint"`
	Sharpness   float64 `json:"sharpness"`
	Noise       float64 `json:"noise"`
}

// Filter identifies a preset curve and how strongly it is applied.
// A nil ID means no filter.
type Filter struct {
	ID        *string `json:"id"`
	Intensity float64 `json:"intensity"`
	Warmth    float64 `json:"warmth"`
}

// Transform is the geometric group: rotate, flip, crop-to-ratio.
type Transform struct {
	RotationDegrees float64   `json:"rotation_degrees"`
	FlipH           bool      `json:"flip_h"`
	FlipV           bool      `json:"flip_v"`
	CropRatio       CropRatio `json:"crop_ratio"`
}

// Brush is the mask painting tool configuration.
type Brush struct {
	Size     float64   `json:"size"`
	Feather  float64   `json:"feather"`
	Hardness float64   `json:"hardness"`
	Mode     BrushMode `json:"mode"`
}

// Mask carries masking parameters only — stroke pixels live with the
// rendering surface, the backend composes parameters.
type Mask struct {
	Brush          Brush        `json:"brush"`
	StrokeCount    int          `json:"stroke_count"`
	AutoEdgeRefine bool         `json:"auto_edge_refine"`
	OverlayColor   OverlayColor `json:"overlay_color"`
}

// Stack is the full uncommitted edit state for one session.
type Stack struct {
	Adjustments Adjustments `json:"adjustments"`
	Filter      Filter      `json:"filter"`
	Transform   Transform   `json:"transform"`
	Mask        Mask        `json:"mask"`
}

// DefaultStack returns the identity stack: composing it yields no
// visual change.
func DefaultStack() Stack {
	return Stack{
		Filter: Filter{Intensity: 100},
		Transform: Transform{
			CropRatio: CropOriginal,
		},
		Mask: Mask{
			Brush: Brush{
				Size:     50,
				Feather:  50,
				Hardness: 75,
				Mode:     BrushAdd,
			},
			OverlayColor: OverlayRed,
		},
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp forces every field into its declared range. Clamping is silent:
// the caller gets a usable stack back, never an error.
func (s Stack) Clamp() Stack {
	a := &s.Adjustments
	a.Exposure = clamp(a.Exposure, BipolarMin, BipolarMax)
	a.Contrast = clamp(a.Contrast, BipolarMin, BipolarMax)
	a.Highlights = clamp(a.Highlights, BipolarMin, BipolarMax)
	a.Shadows = clamp(a.Shadows, BipolarMin, BipolarMax)
	a.Saturation = clamp(a.Saturation, BipolarMin, BipolarMax)
	a.Vibrance = clamp(a.Vibrance, BipolarMin, BipolarMax)
	a.Temperature = clamp(a.Temperature, BipolarMin, BipolarMax)
	a.Tint = clamp(a.Tint, BipolarMin, BipolarMax)
	a.Sharpness = clamp(a.Sharpness, UnipolarMin, UnipolarMax)
	a.Noise = clamp(a.Noise, UnipolarMin, UnipolarMax)

	s.Filter.Intensity = clamp(s.Filter.Intensity, UnipolarMin, UnipolarMax)
	s.Filter.Warmth = clamp(s.Filter.Warmth, UnipolarMin, UnipolarMax)

	s.Transform.RotationDegrees = clamp(s.Transform.RotationDegrees, RotationMin, RotationMax)
	if !ValidCropRatio(s.Transform.CropRatio) {
		s.Transform.CropRatio = CropOriginal
	}

	b := &s.Mask.Brush
	b.Size = clamp(b.Size, UnipolarMin, UnipolarMax)
	b.Feather = clamp(b.Feather, UnipolarMin, UnipolarMax)
	b.Hardness = clamp(b.Hardness, UnipolarMin, UnipolarMax)
	if b.Mode != BrushAdd && b.Mode != BrushErase {
		b.Mode = BrushAdd
	}
	if s.Mask.StrokeCount < 0 {
		s.Mask.StrokeCount = 0
	}
	return s
}

// Clone returns an independent deep copy. Versions snapshot the full
// stack, not a diff, so restore is a plain copy back.
func (s Stack) Clone() Stack {
	out := s
	if s.Filter.ID != nil {
		id := *s.Filter.ID
		out.Filter.ID = &id
	}
	return out
}

// Equal reports bit-for-bit value equality of two stacks.
func (s Stack) Equal(o Stack) bool {
	if s.Adjustments != o.Adjustments {
		return false
	}
	if (s.Filter.ID == nil) != (o.Filter.ID == nil) {
		return false
	}
	if s.Filter.ID != nil && *s.Filter.ID != *o.Filter.ID {
		return false
	}
	if s.Filter.Intensity != o.Filter.Intensity || s.Filter.Warmth != o.Filter.Warmth {
		return false
	}
	return s.Transform == o.Transform && s.Mask == o.Mask
}

// HasFilter reports whether a preset is selected.
func (f Filter) HasFilter() bool { return f.ID != nil && *f.ID != "" }

// HasStrokes reports whether the user painted anything on the mask.
func (m Mask) HasStrokes() bool { return m.StrokeCount > 0 }
