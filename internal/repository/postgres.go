package repository

import (
	"context"
	"fmt"
	"math"

	"github.com/UnknownOlympus/meridian/internal/models"
)

const fetchPlacesQuery = `
		SELECT
			geonameid, name, COALESCE(asciiname, ''), COALESCE(alternatenames, ''),
			latitude, longitude,
			COALESCE(feature_class, ''), COALESCE(feature_code, ''),
			COALESCE(country_code, ''), COALESCE(cc2, ''),
			COALESCE(admin1_code, ''), COALESCE(admin2_code, ''),
			COALESCE(admin3_code, ''), COALESCE(admin4_code, ''),
			population, elevation, COALESCE(dem::text, ''), COALESCE(timezone, ''),
			COALESCE(to_char(modification_date, 'YYYY-MM-DD'), '')
		FROM public.geonames
		ORDER BY geonameid;
	`

// FetchPlaces reads every place from the geonames table. Rows whose id or coordinates
// cannot form a valid Place are dropped, like malformed lines of a gazetteer file.
func (r *Repository) FetchPlaces(ctx context.Context) ([]models.Place, error) {
	rows, err := r.db.Query(ctx, fetchPlacesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query places: %w", err)
	}
	defer rows.Close()

	var (
		places  []models.Place
		skipped int
	)
	for rows.Next() {
		var (
			place      models.Place
			id         int64
			population *int64
		)
		if errScan := rows.Scan(
			&id, &place.Name, &place.ASCIIName, &place.AlternateNames,
			&place.Latitude, &place.Longitude,
			&place.FeatureClass, &place.FeatureCode,
			&place.CountryCode, &place.CC2,
			&place.Admin1Code, &place.Admin2Code, &place.Admin3Code, &place.Admin4Code,
			&population, &place.Elevation, &place.DEM, &place.Timezone,
			&place.ModificationDate,
		); errScan != nil {
			return nil, fmt.Errorf("failed to scan place: %w", errScan)
		}

		if id < 0 || id > math.MaxUint32 || !place.Coordinates().Valid() {
			skipped++
			continue
		}
		place.ID = uint32(id)
		if population != nil && *population >= 0 {
			pop := uint64(*population)
			place.Population = &pop
		}

		places = append(places, place)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	if skipped > 0 {
		r.log.InfoContext(ctx, "Dropped invalid places from database", "skipped", skipped)
	}
	r.log.DebugContext(ctx, "Places fetched from database", "count", len(places))

	return places, nil
}

// Load makes the repository usable as a snapshot source.
func (r *Repository) Load(ctx context.Context) ([]models.Place, error) {
	return r.FetchPlaces(ctx)
}

func (r *Repository) String() string {
	return "postgres:public.geonames"
}
