package domain

// RouteStrokeStyle is the polyline drawn over the map for a driving route.
var RouteStrokeStyle = PolylineStyle{
	StrokeColor:   "#8A2BE2",
	StrokeOpacity: 0.8,
	StrokeWeight:  6,
}

// NightMapStyle returns the dark theme used for the navigation map.
func NightMapStyle() []MapStyler {
	return []MapStyler{
		{ElementType: "geometry", Color: "#1d2c4d"},
		{ElementType: "labels.text.fill", Color: "#8ec3b9"},
		{ElementType: "labels.text.stroke", Color: "#1a3646"},
		{FeatureType: "administrative.country", ElementType: "geometry.stroke", Color: "#4b6878"},
		{FeatureType: "administrative.land_parcel", ElementType: "labels.text.fill", Color: "#64779e"},
		{FeatureType: "administrative.province", ElementType: "geometry.stroke", Color: "#4b6878"},
		{FeatureType: "landscape.man_made", ElementType: "geometry.stroke", Color: "#334e87"},
		{FeatureType: "landscape.natural", ElementType: "geometry", Color: "#023e58"},
		{FeatureType: "poi", ElementType: "geometry", Color: "#283d6a"},
		{FeatureType: "poi", ElementType: "labels.text.fill", Color: "#6f9ba5"},
		{FeatureType: "poi", ElementType: "labels.text.stroke", Color: "#1d2c4d"},
		{FeatureType: "poi.park", ElementType: "geometry.fill", Color: "#023e58"},
		{FeatureType: "poi.park", ElementType: "labels.text.fill", Color: "#3C7680"},
		{FeatureType: "road", ElementType: "geometry", Color: "#304a7d"},
		{FeatureType: "road", ElementType: "labels.text.fill", Color: "#98a5be"},
		{FeatureType: "road", ElementType: "labels.text.stroke", Color: "#1d2c4d"},
		{FeatureType: "road.highway", ElementType: "geometry", Color: "#2c6675"},
		{FeatureType: "road.highway", ElementType: "geometry.stroke", Color: "#255763"},
		{FeatureType: "road.highway", ElementType: "labels.text.fill", Color: "#b0d5ce"},
		{FeatureType: "road.highway", ElementType: "labels.text.stroke", Color: "#023e58"},
		{FeatureType: "transit", ElementType: "labels.text.fill", Color: "#98a5be"},
		{FeatureType: "transit", ElementType: "labels.text.stroke", Color: "#1d2c4d"},
		{FeatureType: "transit.line", ElementType: "geometry.fill", Color: "#283d6a"},
		{FeatureType: "transit.station", ElementType: "geometry", Color: "#3a4762"},
		{FeatureType: "water", ElementType: "geometry", Color: "#0e1626"},
		{FeatureType: "water", ElementType: "labels.text.fill", Color: "#4e6d70"},
	}
}
