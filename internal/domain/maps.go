package domain

type TravelMode string

const TravelModeDriving TravelMode = "driving"

// DirectionsStatusOK is the provider status sentinel for a usable route.
const DirectionsStatusOK = "OK"

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func LatLngOf(l UserLocation) LatLng {
	return LatLng{Lat: l.Latitude, Lng: l.Longitude}
}

type DirectionsRequest struct {
	Origin      LatLng
	Destination string
	TravelMode  TravelMode
}

type DirectionsResult struct {
	Status   string   `json:"status"`
	Summary  string   `json:"summary,omitempty"`
	Polyline string   `json:"polyline,omitempty"`
	Path     []LatLng `json:"path,omitempty"`
	Distance string   `json:"distance,omitempty"`
	Duration string   `json:"duration,omitempty"`
}

type MapStyler struct {
	FeatureType string `json:"featureType,omitempty"`
	ElementType string `json:"elementType,omitempty"`
	Color       string `json:"color"`
}

type PolylineStyle struct {
	StrokeColor   string  `json:"strokeColor"`
	StrokeOpacity float64 `json:"strokeOpacity"`
	StrokeWeight  int     `json:"strokeWeight"`
}

type RouteOverlay struct {
	Directions      DirectionsResult `json:"directions"`
	Style           PolylineStyle    `json:"style"`
	SuppressMarkers bool             `json:"suppressMarkers"`
}

// MapView is everything a client needs to draw the map area.
type MapView struct {
	ID               string        `json:"id"`
	Center           LatLng        `json:"center"`
	Zoom             int           `json:"zoom"`
	DisableDefaultUI bool          `json:"disableDefaultUI"`
	Style            []MapStyler   `json:"style"`
	Route            *RouteOverlay `json:"route,omitempty"`
	StaticURL        string        `json:"staticUrl,omitempty"`
}

type MapOptions struct {
	Center           LatLng
	Zoom             int
	DisableDefaultUI bool
	Style            []MapStyler
}
