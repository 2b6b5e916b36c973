package env

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/roach88/kinetic/internal/model"
)

// ConstantLayer has the same value everywhere.
type ConstantLayer float64

// Value implements model.Layer.
func (c ConstantLayer) Value(model.Position) float64 {
	return float64(c)
}

// NoiseLayer is a smooth pseudo-random field built from OpenSimplex noise.
// The field is fully determined by its seed, so it is safe to use in
// reproducible runs.
type NoiseLayer struct {
	noise     opensimplex.Noise
	scale     float64
	amplitude float64
	offset    float64
	octaves   int
}

// NoiseConfig parameterizes NewNoiseLayer. Zero values pick defaults
// (scale 1, amplitude 1, one octave).
type NoiseConfig struct {
	Seed      int64
	Scale     float64
	Amplitude float64
	Offset    float64
	Octaves   int
}

// NewNoiseLayer returns a layer with values in [Offset, Offset+Amplitude].
func NewNoiseLayer(cfg NoiseConfig) *NoiseLayer {
	l := &NoiseLayer{
		noise:     opensimplex.NewNormalized(cfg.Seed),
		scale:     cfg.Scale,
		amplitude: cfg.Amplitude,
		offset:    cfg.Offset,
		octaves:   cfg.Octaves,
	}
	if l.scale == 0 {
		l.scale = 1
	}
	if l.amplitude == 0 {
		l.amplitude = 1
	}
	if l.octaves <= 0 {
		l.octaves = 1
	}
	return l
}

// Value implements model.Layer.
func (l *NoiseLayer) Value(p model.Position) float64 {
	// Octave sum normalized by total weight keeps the result in [0, 1].
	total, weight, amp, freq := 0.0, 0.0, 1.0, l.scale
	for range l.octaves {
		total += l.noise.Eval2(p.X*freq, p.Y*freq) * amp
		weight += amp
		amp *= 0.5
		freq *= 2
	}
	return l.offset + l.amplitude*(total/weight)
}
