// Package gazetteer reads geonames style place dumps (cities500.txt, cities15000.txt, ...).
//
// A file holds one place per line, no header, and a fixed column order:
//
//	geonameid name asciiname alternatenames latitude longitude feature_class feature_code
//	country_code cc2 admin1 admin2 admin3 admin4 population elevation dem timezone modification_date
//
// Rows that do not fit this schema are dropped, never reported as an error.
package gazetteer

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/UnknownOlympus/meridian/internal/models"
)

// Columns is the number of fields in a gazetteer row.
const Columns = 19

// Gazetteer errors.
var (
	ErrOpenGazetteer = errors.New("failed to open gazetteer")
	ErrReadGazetteer = errors.New("failed to read gazetteer")

	errMalformedRow = errors.New("malformed gazetteer row")
)

// ParseDelimiter converts a configuration value ("tab", "comma" or a single character)
// into a field separator.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "tab", `\t`, "\t":
		return '\t', nil
	case "comma", ",":
		return ',', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("invalid delimiter %q: must be tab, comma or a single character", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '\n' || r == '\r' || r == '"' || r == utf8.RuneError {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}

// Load reads the gazetteer at path. Files ending in ".gz" are decompressed on the fly.
// It returns the parsed places and the number of dropped rows. The only errors are a
// file that cannot be opened (ErrOpenGazetteer) or a stream that breaks mid-read
// (ErrReadGazetteer).
func Load(path string, delimiter rune) ([]models.Place, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w %s: %w", ErrOpenGazetteer, path, err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, errGz := gzip.NewReader(file)
		if errGz != nil {
			return nil, 0, fmt.Errorf("%w %s: %w", ErrOpenGazetteer, path, errGz)
		}
		defer gz.Close()
		reader = gz
	}

	places, skipped, err := Parse(reader, delimiter)
	if err != nil {
		return nil, skipped, fmt.Errorf("%s: %w", path, err)
	}

	return places, skipped, nil
}

// Parse reads gazetteer rows from r. Malformed rows are counted and skipped.
// Tab separated input is split per line without quote handling, as in the geonames dumps;
// any other delimiter goes through a lenient CSV reader so quoted fields may contain it.
func Parse(r io.Reader, delimiter rune) ([]models.Place, int, error) {
	var rows rowReader
	if delimiter == '\t' {
		rows = newLineReader(r, "\t")
	} else {
		rows = newCSVReader(r, delimiter)
	}

	var (
		places  []models.Place
		skipped int
	)
	for {
		fields, err := rows.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, errMalformedRow) {
			skipped++
			continue
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("%w: %w", ErrReadGazetteer, err)
		}
		if len(fields) == 1 && fields[0] == "" {
			continue
		}

		place, err := parseRow(fields)
		if err != nil {
			skipped++
			continue
		}
		places = append(places, place)
	}

	return places, skipped, nil
}

// parseRow maps one row onto a Place.
func parseRow(fields []string) (models.Place, error) {
	if len(fields) != Columns {
		return models.Place{}, fmt.Errorf("%w: got %d columns", errMalformedRow, len(fields))
	}

	id, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return models.Place{}, fmt.Errorf("%w: id: %w", errMalformedRow, err)
	}
	lat, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return models.Place{}, fmt.Errorf("%w: latitude: %w", errMalformedRow, err)
	}
	lng, err := strconv.ParseFloat(fields[5], 64)
	if err != nil {
		return models.Place{}, fmt.Errorf("%w: longitude: %w", errMalformedRow, err)
	}

	place := models.Place{
		ID:               uint32(id),
		Name:             fields[1],
		ASCIIName:        fields[2],
		AlternateNames:   fields[3],
		Latitude:         lat,
		Longitude:        lng,
		FeatureClass:     fields[6],
		FeatureCode:      fields[7],
		CountryCode:      fields[8],
		CC2:              fields[9],
		Admin1Code:       fields[10],
		Admin2Code:       fields[11],
		Admin3Code:       fields[12],
		Admin4Code:       fields[13],
		DEM:              fields[16],
		Timezone:         fields[17],
		ModificationDate: fields[18],
	}
	if !place.Coordinates().Valid() {
		return models.Place{}, fmt.Errorf("%w: coordinates out of range", errMalformedRow)
	}

	if fields[14] != "" {
		population, errPop := strconv.ParseUint(fields[14], 10, 64)
		if errPop != nil {
			return models.Place{}, fmt.Errorf("%w: population: %w", errMalformedRow, errPop)
		}
		place.Population = &population
	}
	if fields[15] != "" {
		elevation, errElev := strconv.ParseInt(fields[15], 10, 16)
		if errElev != nil {
			return models.Place{}, fmt.Errorf("%w: elevation: %w", errMalformedRow, errElev)
		}
		e := int16(elevation)
		place.Elevation = &e
	}

	return place, nil
}

// rowReader yields the fields of one row per call. It returns errMalformedRow for a row
// that cannot be tokenised and io.EOF at the end of input.
type rowReader interface {
	Read() ([]string, error)
}

type lineReader struct {
	r   *bufio.Reader
	sep string
}

func newLineReader(r io.Reader, sep string) *lineReader {
	const bufSize = 64 * 1024
	return &lineReader{r: bufio.NewReaderSize(r, bufSize), sep: sep}
}

func (lr *lineReader) Read() ([]string, error) {
	line, err := lr.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if errors.Is(err, io.EOF) && line == "" {
		return nil, io.EOF
	}
	line = strings.TrimRight(line, "\r\n")
	if !utf8.ValidString(line) {
		return nil, errMalformedRow
	}
	return strings.Split(line, lr.sep), nil
}

type csvReader struct {
	r *csv.Reader
}

func newCSVReader(r io.Reader, delimiter rune) *csvReader {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return &csvReader{r: reader}
}

func (cr *csvReader) Read() ([]string, error) {
	fields, err := cr.r.Read()
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return nil, errMalformedRow
	}
	return fields, err
}
