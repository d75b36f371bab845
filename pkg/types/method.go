// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Method is a named set of dithering flags compared against the others.
type Method struct {
	// Name identifies the method and is the stem of its output file
	// (e.g. "ordered_o3x3").
	Name string `json:"name" yaml:"name"`

	// Args are the method-specific flags in the order they are passed to
	// the tool (e.g. ["-ordered-dither", "o3x3"]).
	Args []string `json:"args" yaml:"args"`
}

// Outcome records how a single conversion job ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)
