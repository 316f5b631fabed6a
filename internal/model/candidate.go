package model

// Candidate is a provider-normalized place record awaiting ingestion. Every
// provider adapter maps its own response shape into this one type so the
// duplicate checker never sees provider-specific field naming.
type Candidate struct {
	Name        string
	Category    string
	Description string
	CountryCode string
	City        string
	Lat         *float64
	Lon         *float64
	WikidataID  string
	OSMID       string
	// EvidenceScore is only meaningful for AI-generated candidates, where the
	// model reports its own confidence. API orchestrators ignore it and
	// compute their own.
	EvidenceScore int
	Sources       []Source
}

// HasCoordinates reports whether both latitude and longitude are present.
func (c Candidate) HasCoordinates() bool {
	return c.Lat != nil && c.Lon != nil
}

// Float returns a pointer to v, for building candidate coordinates.
func Float(v float64) *float64 {
	return &v
}
