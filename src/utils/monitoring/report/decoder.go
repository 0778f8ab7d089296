package report

import "go.uber.org/atomic"

type DecoderErrors struct {
	ShapeMismatches atomic.Uint64 `json:"shape_mismatches"`
}

type DecoderState struct {
	Decoded atomic.Uint64 `json:"decoded"`
}

type DecoderReport struct {
	State  DecoderState  `json:"state"`
	Errors DecoderErrors `json:"errors"`
}
