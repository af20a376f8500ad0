package models

import "fmt"

// Place is one entry of a geonames style gazetteer (http://www.geonames.org/export/).
// A Place is created once per row during a load and never modified afterwards.
type Place struct {
	ID               uint32  // integer id of record in geonames database
	Name             string  // name of geographical point (utf8)
	ASCIIName        string  // name of geographical point in plain ascii characters
	AlternateNames   string  // comma separated alternate names
	Latitude         float64 // latitude in decimal degrees (wgs84)
	Longitude        float64 // longitude in decimal degrees (wgs84)
	FeatureClass     string  // see http://www.geonames.org/export/codes.html, char(1)
	FeatureCode      string  // see http://www.geonames.org/export/codes.html, varchar(10)
	CountryCode      string  // ISO-3166 2-letter country code
	CC2              string  // alternate country codes, comma separated
	Admin1Code       string  // fipscode of the first administrative division
	Admin2Code       string  // code for the second administrative division, a county in the US
	Admin3Code       string  // code for third level administrative division
	Admin4Code       string  // code for fourth level administrative division
	Population       *uint64 // nil when the source has no value
	Elevation        *int16  // in metres, nil when unknown
	DEM              string  // digital elevation model, srtm3 or gtopo30
	Timezone         string  // the IANA timezone id
	ModificationDate string  // date of last modification in yyyy-MM-dd format
}

// Coordinates returns the position of the place.
func (p *Place) Coordinates() Coordinates {
	return Coordinates{Latitude: p.Latitude, Longitude: p.Longitude}
}

// AdminCodes returns the non-empty administrative subdivision codes, most significant first.
func (p *Place) AdminCodes() []string {
	codes := make([]string, 0, 4)
	for _, c := range []string{p.Admin1Code, p.Admin2Code, p.Admin3Code, p.Admin4Code} {
		if c != "" {
			codes = append(codes, c)
		}
	}
	return codes
}

func (p *Place) String() string {
	return fmt.Sprintf("%s, %s", p.Name, p.CountryCode)
}
