// Package geo resolves ZIP codes to geocoordinates and timezones from
// an embedded static reference table.
package geo

import (
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"
)

//go:embed zipcodes.csv
var zipFS embed.FS

// ErrUnknownZipCode marks a ZIP code absent from the reference data.
var ErrUnknownZipCode = errors.New("unknown zip code")

// Location is one immutable reference row.
type Location struct {
	ZipCode        string
	City           string
	State          string
	Country        string
	Latitude       float64
	Longitude      float64
	TimeZoneName   string
	TimeZoneOffset int // standard UTC offset, hours

	tzOnce sync.Once
	tz     *time.Location
}

// TZ returns the IANA timezone for the location, falling back to the
// fixed standard offset when the zoneinfo database lacks the name.
func (l *Location) TZ() *time.Location {
	l.tzOnce.Do(func() {
		tz, err := time.LoadLocation(l.TimeZoneName)
		if err != nil {
			tz = time.FixedZone(l.TimeZoneName, l.TimeZoneOffset*3600)
		}
		l.tz = tz
	})
	return l.tz
}

// Resolver maps a ZIP code to its Location.
type Resolver interface {
	Resolve(zip string) (*Location, error)
}

// StaticResolver serves the embedded reference table.
type StaticResolver struct {
	byZip map[string]*Location
}

// NewStaticResolver parses the embedded CSV once at startup.
func NewStaticResolver() (*StaticResolver, error) {
	f, err := zipFS.Open("zipcodes.csv")
	if err != nil {
		return nil, fmt.Errorf("open zip data: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil { // header
		return nil, fmt.Errorf("read zip data header: %w", err)
	}

	byZip := make(map[string]*Location)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read zip data: %w", err)
		}
		lat, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, fmt.Errorf("zip %s latitude: %w", rec[0], err)
		}
		lon, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			return nil, fmt.Errorf("zip %s longitude: %w", rec[0], err)
		}
		offset, err := strconv.Atoi(rec[6])
		if err != nil {
			return nil, fmt.Errorf("zip %s offset: %w", rec[0], err)
		}
		byZip[rec[0]] = &Location{
			ZipCode:        rec[0],
			City:           rec[1],
			State:          rec[2],
			Country:        "US",
			Latitude:       lat,
			Longitude:      lon,
			TimeZoneName:   rec[5],
			TimeZoneOffset: offset,
		}
	}
	return &StaticResolver{byZip: byZip}, nil
}

func (s *StaticResolver) Resolve(zip string) (*Location, error) {
	loc, ok := s.byZip[zip]
	if !ok {
		return nil, fmt.Errorf("zip %s: %w", zip, ErrUnknownZipCode)
	}
	return loc, nil
}
