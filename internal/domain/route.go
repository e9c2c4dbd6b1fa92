package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrIncompleteRoute = errors.New("incomplete route details")

type RouteDetails struct {
	Destination       string `json:"destination"`
	Duration          string `json:"duration"`
	Distance          string `json:"distance"`
	DirectionsAmharic string `json:"directionsAmharic"`
}

// Validate reports which required field is missing or blank.
func (r RouteDetails) Validate() error {
	switch {
	case isBlank(r.Destination):
		return fmt.Errorf("%w: destination", ErrIncompleteRoute)
	case isBlank(r.Duration):
		return fmt.Errorf("%w: duration", ErrIncompleteRoute)
	case isBlank(r.Distance):
		return fmt.Errorf("%w: distance", ErrIncompleteRoute)
	case isBlank(r.DirectionsAmharic):
		return fmt.Errorf("%w: directionsAmharic", ErrIncompleteRoute)
	}
	return nil
}

// Headline is the "<duration> (<distance>)" line of the route card.
func (r RouteDetails) Headline() string {
	return fmt.Sprintf("%s (%s)", r.Duration, r.Distance)
}

func (r RouteDetails) Subtitle() string {
	return "Simplest path to " + r.Destination
}

// FallbackRoute is returned by route resolution whenever the provider call fails.
func FallbackRoute() RouteDetails {
	return RouteDetails{
		Destination:       "Menelik II Hospital",
		Duration:          "25 min",
		Distance:          "15 km",
		DirectionsAmharic: "ወደ ምኒሊክ 2ኛ ሆስፒታል ለመድረስ፣ ቀጥታ ወደፊት ይንዱ እና በቀኝ በኩል ባለው የመጀመሪያው መታጠፊያ ይውሰዱ። ከዚያ በኋላ ለ 5 ኪሎ ሜትር ያህል ቀጥ ብለው ይንዱ እና መድረሻዎ በግራ በኩል ይሆናል።",
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
