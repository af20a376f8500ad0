package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/UnknownOlympus/meridian/internal/geocoder"
	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/UnknownOlympus/meridian/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const defaultResults = 1

// Searcher answers nearest place queries.
type Searcher interface {
	Search(ctx context.Context, lat, lng float64, n int) ([]geocoder.Result, error)
}

// Handler serves the public reverse geocoding API.
type Handler struct {
	searcher   Searcher
	maxResults int
	log        *slog.Logger
}

// New creates a Handler that accepts at most maxResults results per query.
func New(searcher Searcher, maxResults int, log *slog.Logger) *Handler {
	return &Handler{searcher: searcher, maxResults: maxResults, log: log}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/", h.ReverseGeocode)
}

// ReverseGeocode handles GET /
//
// Query params:
//   - lat     (required) float64, WGS-84 latitude
//   - lng     (required) float64, WGS-84 longitude
//   - n       (optional) number of places, default 1
//   - details (optional) bool, include every gazetteer field
//
// Response 200: a GeoJSON FeatureCollection, nearest place first.
func (h *Handler) ReverseGeocode(c *gin.Context) {
	lat, ok := parseRequiredFloat(c, "lat")
	if !ok {
		return
	}

	lng, ok := parseRequiredFloat(c, "lng")
	if !ok {
		return
	}

	n := defaultResults
	if raw := c.Query("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > h.maxResults {
			badRequest(c, "n must be an integer between 1 and "+strconv.Itoa(h.maxResults))
			return
		}
		n = v
	}

	details := false
	if raw := c.Query("details"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "details must be a boolean")
			return
		}
		details = v
	}

	results, err := h.searcher.Search(c.Request.Context(), lat, lng, n)
	if err != nil {
		h.fail(c, err)
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, r := range results {
		fc.Append(toFeature(r, details))
	}

	c.JSON(http.StatusOK, fc)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCoordinates):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_coordinates", "message": err.Error()})
	case errors.Is(err, service.ErrNoResult):
		c.JSON(http.StatusNotFound, gin.H{"error": "no_result", "message": err.Error()})
	case errors.Is(err, service.ErrPlaceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
	case errors.Is(err, service.ErrUnavailable):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable", "message": err.Error()})
	default:
		h.log.ErrorContext(c.Request.Context(), "Search failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "search failed"})
	}
}

func toFeature(r geocoder.Result, details bool) *geojson.Feature {
	p := r.Place
	f := geojson.NewFeature(orb.Point{p.Longitude, p.Latitude})
	f.Properties["id"] = p.ID
	f.Properties["name"] = p.Name
	f.Properties["distanceToQuery"] = r.Distance

	if details {
		addDetails(f.Properties, p)
	}

	return f
}

func addDetails(props geojson.Properties, p *models.Place) {
	props["asciiname"] = p.ASCIIName
	props["country"] = p.CountryCode
	props["cc2"] = p.CC2
	props["admin1"] = p.Admin1Code
	props["admin2"] = p.Admin2Code
	props["admin3"] = p.Admin3Code
	props["admin4"] = p.Admin4Code
	props["featureClass"] = p.FeatureClass
	props["featureCode"] = p.FeatureCode
	props["population"] = p.Population
	props["elevation"] = p.Elevation
	props["dem"] = p.DEM
	props["timezone"] = p.Timezone
	props["modificationDate"] = p.ModificationDate
}

func parseRequiredFloat(c *gin.Context, key string) (float64, bool) {
	raw := c.Query(key)
	if raw == "" {
		badRequest(c, key+" is required")
		return 0, false
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		badRequest(c, key+" must be a number")
		return 0, false
	}

	return v, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_parameter", "message": msg})
}
