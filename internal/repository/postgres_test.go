package repository_test

import (
	"log/slog"
	"regexp"
	"testing"

	"github.com/UnknownOlympus/meridian/internal/repository"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fetchPlacesQuery = `FROM public.geonames`

var placeColumns = []string{
	"geonameid", "name", "asciiname", "alternatenames", "latitude", "longitude",
	"feature_class", "feature_code", "country_code", "cc2",
	"admin1_code", "admin2_code", "admin3_code", "admin4_code",
	"population", "elevation", "dem", "timezone", "modification_date",
}

func ptr[T any](v T) *T { return &v }

func TestFetchPlaces(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()

	t.Run("error - query places", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(fetchPlacesQuery)).
			WillReturnError(assert.AnError)

		places, err := repo.FetchPlaces(ctx)

		require.Nil(t, places)
		require.Error(t, err)
		require.ErrorContains(t, err, "failed to query places")
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - scan place", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(fetchPlacesQuery)).
			WillReturnRows(
				pgxmock.NewRows(placeColumns).AddRow(
					"invalid_id", "Erkelenz", "Erkelenz", "", 51.08, 6.31563, "P", "PPLA4", "DE", "",
					"07", "051", "05370", "05370016", nil, nil, "96", "Europe/Berlin", "2015-09-05",
				),
			)

		places, err := repo.FetchPlaces(ctx)

		require.Nil(t, places)
		require.Error(t, err)
		require.ErrorContains(t, err, "failed to scan place")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - rows error", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(fetchPlacesQuery)).
			WillReturnRows(
				pgxmock.NewRows(placeColumns).AddRow(
					int64(2929622), "Erkelenz", "Erkelenz", "", 51.08, 6.31563, "P", "PPLA4", "DE", "",
					"07", "051", "05370", "05370016", nil, nil, "96", "Europe/Berlin", "2015-09-05",
				).RowError(1, assert.AnError),
			)

		places, err := repo.FetchPlaces(ctx)

		require.Nil(t, places)
		require.Error(t, err)
		require.ErrorContains(t, err, "failed to read row")
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - fetch places", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(fetchPlacesQuery)).
			WillReturnRows(
				pgxmock.NewRows(placeColumns).
					AddRow(
						int64(2929622), "Erkelenz", "Erkelenz", "Erkelenz-Mitte", 51.08, 6.31563, "P", "PPLA4", "DE", "",
						"07", "051", "05370", "05370016", ptr(int64(45350)), ptr(int16(97)), "96", "Europe/Berlin", "2015-09-05",
					).
					AddRow(
						int64(2864053), "Nikolassee", "Nikolassee", "", 52.4344, 13.20095, "P", "PPLX", "DE", "",
						"16", "00", "11000", "11000000", nil, nil, "42", "Europe/Berlin", "2022-08-04",
					),
			)

		places, err := repo.FetchPlaces(ctx)

		require.NoError(t, err)
		require.Len(t, places, 2)

		place := places[0]
		assert.Equal(t, uint32(2929622), place.ID)
		assert.Equal(t, "Erkelenz", place.Name)
		assert.Equal(t, "Erkelenz-Mitte", place.AlternateNames)
		assert.InDelta(t, 51.08, place.Latitude, 1e-9)
		assert.InDelta(t, 6.31563, place.Longitude, 1e-9)
		assert.Equal(t, []string{"07", "051", "05370", "05370016"}, place.AdminCodes())
		require.NotNil(t, place.Population)
		assert.Equal(t, uint64(45350), *place.Population)
		require.NotNil(t, place.Elevation)
		assert.Equal(t, int16(97), *place.Elevation)
		assert.Equal(t, "2015-09-05", place.ModificationDate)

		assert.Nil(t, places[1].Population)
		assert.Nil(t, places[1].Elevation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - invalid rows are dropped", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(fetchPlacesQuery)).
			WillReturnRows(
				pgxmock.NewRows(placeColumns).
					AddRow(
						int64(1), "Nowhere", "", "", 95.0, 10.0, "", "", "", "",
						"", "", "", "", nil, nil, "", "", "",
					).
					AddRow(
						int64(-3), "Negative", "", "", 10.0, 10.0, "", "", "", "",
						"", "", "", "", nil, nil, "", "", "",
					).
					AddRow(
						int64(2), "Somewhere", "", "", 10.0, 10.0, "", "", "", "",
						"", "", "", "", ptr(int64(-5)), nil, "", "", "",
					),
			)

		places, err := repo.FetchPlaces(ctx)

		require.NoError(t, err)
		require.Len(t, places, 1)
		assert.Equal(t, "Somewhere", places[0].Name)
		assert.Nil(t, places[0].Population)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - load reads the same rows", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(fetchPlacesQuery)).
			WillReturnRows(pgxmock.NewRows(placeColumns))

		places, err := repo.Load(ctx)

		require.NoError(t, err)
		assert.Empty(t, places)
		assert.Equal(t, "postgres:public.geonames", repo.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
