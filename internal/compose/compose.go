// Package compose turns a parameter stack into a render descriptor: the
// ordered list of primitive operations a rendering surface applies to the
// original pixels. Compose is pure and total — same stack in, same
// descriptor out, no error cases, no side effects.
package compose

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"photoedit-backend/internal/params"
)

// OpKind enumerates the primitive operations a descriptor may contain.
type OpKind string

const (
	OpRotate      OpKind = "rotate"
	OpFlipH       OpKind = "flip_h"
	OpFlipV       OpKind = "flip_v"
	OpCrop        OpKind = "crop"
	OpFilter      OpKind = "filter"
	OpWarmTint    OpKind = "warm_tint"
	OpBrightness  OpKind = "brightness"
	OpContrast    OpKind = "contrast"
	OpSaturation  OpKind = "saturation"
	OpHighlights  OpKind = "highlights"
	OpShadows     OpKind = "shadows"
	OpVibrance    OpKind = "vibrance"
	OpHueShift    OpKind = "hue_shift"
	OpTintShift   OpKind = "tint_shift"
	OpSharpen     OpKind = "sharpen"
	OpDenoise     OpKind = "denoise"
	OpMaskOverlay OpKind = "mask_overlay"
)

// Op is one primitive operation. Ref names a discrete choice (filter id,
// crop ratio, overlay color); Value is the scalar amount where one applies.
type Op struct {
	Kind  OpKind  `json:"kind"`
	Ref   string  `json:"ref,omitempty"`
	Value float64 `json:"value,omitempty"`
}

// RenderDescriptor is the composed output. Op ordering is part of the
// contract: transform first, then filter, then tonal adjustments, then
// mask overlay.
type RenderDescriptor struct {
	Ops []Op `json:"ops"`
}

// IsIdentity reports whether applying the descriptor changes nothing.
func (d RenderDescriptor) IsIdentity() bool { return len(d.Ops) == 0 }

// Fingerprint returns a stable hash of the descriptor, usable as a render
// cache key. Equal descriptors always produce equal fingerprints.
func (d RenderDescriptor) Fingerprint() string {
	var b strings.Builder
	for _, op := range d.Ops {
		fmt.Fprintf(&b, "%s|%s|%.6f;", op.Kind, op.Ref, op.Value)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Compose folds the four parameter groups into one descriptor. The input
// is clamped first so an out-of-range stack still composes to something
// renderable. Composing the default stack yields the identity descriptor.
func Compose(s params.Stack) RenderDescriptor {
	s = s.Clamp()

	var ops []Op

	// 1. Geometry: rotate, then flip, then crop-to-ratio.
	t := s.Transform
	if t.RotationDegrees != 0 {
		ops = append(ops, Op{Kind: OpRotate, Value: t.RotationDegrees})
	}
	if t.FlipH {
		ops = append(ops, Op{Kind: OpFlipH})
	}
	if t.FlipV {
		ops = append(ops, Op{Kind: OpFlipV})
	}
	if t.CropRatio != params.CropOriginal {
		ops = append(ops, Op{Kind: OpCrop, Ref: string(t.CropRatio)})
	}

	// 2. Filter preset: base curve scaled by intensity, warmth as a
	// secondary tint.
	if s.Filter.HasFilter() {
		ops = append(ops, Op{Kind: OpFilter, Ref: *s.Filter.ID, Value: s.Filter.Intensity / 100})
		if s.Filter.Warmth > 0 {
			ops = append(ops, Op{Kind: OpWarmTint, Value: s.Filter.Warmth / 100})
		}
	}

	// 3. Tonal adjustments.
	a := s.Adjustments
	if a.Exposure != 0 {
		ops = append(ops, Op{Kind: OpBrightness, Value: 1 + a.Exposure/200})
	}
	if a.Contrast != 0 {
		ops = append(ops, Op{Kind: OpContrast, Value: 1 + a.Contrast/200})
	}
	if a.Highlights != 0 {
		ops = append(ops, Op{Kind: OpHighlights, Value: a.Highlights / 100})
	}
	if a.Shadows != 0 {
		ops = append(ops, Op{Kind: OpShadows, Value: a.Shadows / 100})
	}
	if a.Saturation != 0 {
		ops = append(ops, Op{Kind: OpSaturation, Value: 1 + a.Saturation/100})
	}
	if a.Vibrance != 0 {
		ops = append(ops, Op{Kind: OpVibrance, Value: a.Vibrance / 100})
	}
	switch {
	case a.Temperature > 0:
		ops = append(ops, Op{Kind: OpWarmTint, Value: a.Temperature / 200})
	case a.Temperature < 0:
		// Cool side maps to a hue rotation instead of a tint.
		ops = append(ops, Op{Kind: OpHueShift, Value: a.Temperature / 5})
	}
	if a.Tint != 0 {
		ops = append(ops, Op{Kind: OpTintShift, Value: a.Tint / 100})
	}
	if a.Sharpness > 0 {
		ops = append(ops, Op{Kind: OpSharpen, Value: a.Sharpness / 100})
	}
	if a.Noise > 0 {
		ops = append(ops, Op{Kind: OpDenoise, Value: a.Noise / 100})
	}

	// 4. Mask overlay, only when the user actually painted strokes.
	if s.Mask.HasStrokes() {
		ops = append(ops, Op{Kind: OpMaskOverlay, Ref: string(s.Mask.OverlayColor)})
	}

	return RenderDescriptor{Ops: ops}
}
