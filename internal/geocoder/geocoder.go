// Package geocoder answers "which places are nearest to this latitude/longitude" over an
// in-memory gazetteer.
//
// A ReverseGeocoder pairs the place records with a kd-tree built over their unit-sphere
// projections. Both halves are created together by New and never change afterwards, so
// a ReverseGeocoder is safe for concurrent use and is replaced as a whole on reload.
package geocoder

import (
	"fmt"
	"time"

	"github.com/UnknownOlympus/meridian/internal/gazetteer"
	"github.com/UnknownOlympus/meridian/internal/geo"
	"github.com/UnknownOlympus/meridian/internal/kdtree"
	"github.com/UnknownOlympus/meridian/internal/models"
)

// Result is one match of a search.
type Result struct {
	Distance float64       // distance to the query point in the geocoder's unit
	Index    int           // position of Place in the geocoder, usable with Get
	Place    *models.Place // the matched record, owned by the geocoder
}

// ReverseGeocoder is an immutable snapshot of places and their spatial index.
// The zero value is an empty geocoder that never finds anything.
type ReverseGeocoder struct {
	places     []models.Place
	tree       *kdtree.Tree
	unit       geo.Unit
	bucketSize int
	builtAt    time.Time
}

// Option configures a ReverseGeocoder.
type Option func(*ReverseGeocoder)

// WithUnit selects the unit of reported distances. The default is kilometres.
func WithUnit(unit geo.Unit) Option {
	return func(g *ReverseGeocoder) { g.unit = unit }
}

// WithBucketSize sets the leaf capacity of the underlying kd-tree.
func WithBucketSize(size int) Option {
	return func(g *ReverseGeocoder) { g.bucketSize = size }
}

// New builds a geocoder over places. Places outside the WGS84 lat/lng range are left out
// so every index entry resolves to a record. The geocoder keeps its own copy of the records.
func New(places []models.Place, opts ...Option) *ReverseGeocoder {
	g := &ReverseGeocoder{
		unit:       geo.Kilometres,
		bucketSize: kdtree.DefaultBucketSize,
	}
	for _, opt := range opts {
		opt(g)
	}

	g.places = make([]models.Place, 0, len(places))
	for i := range places {
		if places[i].Coordinates().Valid() {
			g.places = append(g.places, places[i])
		}
	}

	points := make([]geo.Point, len(g.places))
	for i := range g.places {
		points[i] = geo.ToUnitSphere(g.places[i].Latitude, g.places[i].Longitude)
	}
	g.tree = kdtree.NewWithBucketSize(points, g.bucketSize)
	g.builtAt = time.Now()

	return g
}

// FromFile loads a gazetteer file and builds a geocoder from it.
func FromFile(path string, delimiter rune, opts ...Option) (*ReverseGeocoder, error) {
	places, _, err := gazetteer.Load(path, delimiter)
	if err != nil {
		return nil, err
	}
	return New(places, opts...), nil
}

// Search returns up to n places nearest to (lat, lng), nearest first. Asking for more
// places than indexed returns all of them; an empty geocoder or NaN input returns none.
func (g *ReverseGeocoder) Search(lat, lng float64, n int) []Result {
	if g.tree == nil {
		return nil
	}

	neighbours := g.tree.NearestN(geo.ToUnitSphere(lat, lng), n)
	if len(neighbours) == 0 {
		return nil
	}

	results := make([]Result, len(neighbours))
	for i, nb := range neighbours {
		results[i] = g.result(nb)
	}

	return results
}

// Nearest returns the single place nearest to (lat, lng).
func (g *ReverseGeocoder) Nearest(lat, lng float64) (Result, bool) {
	if g.tree == nil {
		return Result{}, false
	}

	nb, ok := g.tree.Nearest(geo.ToUnitSphere(lat, lng))
	if !ok {
		return Result{}, false
	}

	return g.result(nb), true
}

func (g *ReverseGeocoder) result(nb kdtree.Neighbour) Result {
	return Result{
		Distance: geo.SquaredChordToDistance(nb.Distance, g.unit.EarthRadius()),
		Index:    nb.Item,
		Place:    &g.places[nb.Item],
	}
}

// Get returns the place at position idx, as reported in Result.Index.
func (g *ReverseGeocoder) Get(idx int) (*models.Place, bool) {
	if idx < 0 || idx >= len(g.places) {
		return nil, false
	}
	return &g.places[idx], true
}

// Len returns the number of places in the geocoder.
func (g *ReverseGeocoder) Len() int {
	return len(g.places)
}

// TreeSize returns the number of points in the spatial index.
func (g *ReverseGeocoder) TreeSize() int {
	if g.tree == nil {
		return 0
	}
	return g.tree.Size()
}

// Unit returns the unit of reported distances.
func (g *ReverseGeocoder) Unit() geo.Unit {
	if g.unit == "" {
		return geo.Kilometres
	}
	return g.unit
}

// BuiltAt returns the time the snapshot was built.
func (g *ReverseGeocoder) BuiltAt() time.Time {
	return g.builtAt
}

func (g *ReverseGeocoder) String() string {
	return fmt.Sprintf("ReverseGeocoder<cities=%d, tree=%d>", g.Len(), g.TreeSize())
}
