package models

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Route is a driving route summary already converted to km and minutes.
type Route struct {
	DistanceKM  float64
	DurationMin float64
}

// GeoStatus tags the outcome of enriching one listing.
type GeoStatus int

const (
	GeoOK GeoStatus = iota
	GeoNoMatch
	GeoLookupFailed
	GeoRouteFailed
)

func (s GeoStatus) String() string {
	switch s {
	case GeoOK:
		return "ok"
	case GeoNoMatch:
		return "no-match"
	case GeoLookupFailed:
		return "lookup-failed"
	case GeoRouteFailed:
		return "route-failed"
	}
	return "unknown"
}

// GeoResult is the per-listing outcome of the geocode + route lookups.
// Coordinates and Route are set only when Status is GeoOK.
type GeoResult struct {
	Status      GeoStatus
	Address     string
	Coordinates *Coordinates
	Route       *Route
	Err         error
}
