package domain

import (
	"fmt"
	"time"
)

type UserLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (l UserLocation) String() string {
	return fmt.Sprintf("%g,%g", l.Latitude, l.Longitude)
}

// PositionOptions mirrors the knobs of a device position query.
type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

func DefaultPositionOptions() PositionOptions {
	return PositionOptions{
		HighAccuracy: true,
		Timeout:      10 * time.Second,
		MaximumAge:   0,
	}
}
