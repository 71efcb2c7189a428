package store

import (
	"fmt"
	"math"

	"github.com/brensch/speed/engine/decision"
	"github.com/vmihailenco/msgpack/v5"
)

// Layer is one decision matrix quantised to a byte per cell over
// [Min, Max]. Cells are row-major.
type Layer struct {
	Name   string  `msgpack:"n"`
	Min    float64 `msgpack:"lo"`
	Max    float64 `msgpack:"hi"`
	Width  int     `msgpack:"w"`
	Height int     `msgpack:"h"`
	Cells  []byte  `msgpack:"c"`
}

// EncodeMatrices packs the layers behind a decision. Values outside a
// layer's range are clamped. No layers encode to nil.
func EncodeMatrices(ms []decision.NamedMatrix) ([]byte, error) {
	if len(ms) == 0 {
		return nil, nil
	}
	layers := make([]Layer, len(ms))
	for i, m := range ms {
		if len(m.Values) != m.Width*m.Height {
			return nil, fmt.Errorf("matrix %q: %d values for %dx%d", m.Name, len(m.Values), m.Width, m.Height)
		}
		l := Layer{Name: m.Name, Min: m.Min, Max: m.Max, Width: m.Width, Height: m.Height, Cells: make([]byte, len(m.Values))}
		if span := m.Max - m.Min; span > 0 {
			for j, v := range m.Values {
				q := math.Round((v - m.Min) / span * 255)
				l.Cells[j] = byte(min(max(q, 0), 255))
			}
		}
		layers[i] = l
	}
	return msgpack.Marshal(layers)
}

// DecodeMatrices restores what EncodeMatrices packed, up to the
// quantisation step of each layer.
func DecodeMatrices(b []byte) ([]decision.NamedMatrix, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var layers []Layer
	if err := msgpack.Unmarshal(b, &layers); err != nil {
		return nil, fmt.Errorf("msgpack unmarshal: %w", err)
	}
	out := make([]decision.NamedMatrix, len(layers))
	for i, l := range layers {
		if l.Width <= 0 || l.Height <= 0 || len(l.Cells) != l.Width*l.Height {
			return nil, fmt.Errorf("matrix %q: invalid dimensions %dx%d with %d cells", l.Name, l.Width, l.Height, len(l.Cells))
		}
		m := decision.NamedMatrix{Name: l.Name, Min: l.Min, Max: l.Max, Width: l.Width, Height: l.Height, Values: make([]float64, len(l.Cells))}
		span := l.Max - l.Min
		for j, c := range l.Cells {
			m.Values[j] = l.Min + float64(c)/255*span
		}
		out[i] = m
	}
	return out, nil
}
