// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Intake is a confirmed paper request assembled from aggregated inputs.
// Topic and UserType are required; the rest default per DefaultIntake.
type Intake struct {
	Topic    string         `json:"topic" validate:"required,min=3"`
	UserType UserType       `json:"user_type" validate:"required,oneof=student tutor mixed guest"`
	Format   CitationFormat `json:"format" validate:"omitempty,oneof=APA MLA Chicago"`

	// LengthPages is the requested paper length, 1-50 pages.
	LengthPages int `json:"length_pages" validate:"omitempty,min=1,max=50"`

	Deadline time.Time `json:"deadline,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
}

// DefaultIntake fills unset optional fields: APA format, 5 pages.
func DefaultIntake(in Intake) Intake {
	if in.Format == "" {
		in.Format = FormatAPA
	}
	if in.LengthPages == 0 {
		in.LengthPages = 5
	}
	return in
}
