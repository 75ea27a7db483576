package models

import (
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/ewkb"
	"github.com/paulmach/orb/geojson"
)

// SRID of every stored geometry (WGS84 lon/lat).
const SRID = 4326

// GeoPoint is a WGS84 point stored as a PostGIS geometry(Point,4326) column.
type GeoPoint struct {
	Lon float64 `json:"longitude"`
	Lat float64 `json:"latitude"`
}

func NewGeoPoint(lon, lat float64) GeoPoint {
	return GeoPoint{Lon: lon, Lat: lat}
}

func (p GeoPoint) Point() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

func (GeoPoint) GormDataType() string {
	return "geometry(Point,4326)"
}

// Value encodes the point as hex EWKB, which PostGIS accepts as geometry input.
func (p GeoPoint) Value() (driver.Value, error) {
	return ewkb.MarshalToHex(p.Point(), SRID)
}

func (p *GeoPoint) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*p = GeoPoint{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("geo point: unsupported scan type %T", value)
	}

	// The text protocol hands geometry back as hex; the binary protocol as raw EWKB.
	if decoded, err := hex.DecodeString(string(raw)); err == nil {
		raw = decoded
	}

	geom, _, err := ewkb.Unmarshal(raw)
	if err != nil {
		return fmt.Errorf("geo point: %w", err)
	}
	pt, ok := geom.(orb.Point)
	if !ok {
		return fmt.Errorf("geo point: got %s geometry", geom.GeoJSONType())
	}
	*p = GeoPoint{Lon: pt[0], Lat: pt[1]}
	return nil
}

// Geometry wraps an orb geometry stored as a GeoJSON jsonb column.
type Geometry struct {
	orb.Geometry
}

func (Geometry) GormDataType() string {
	return "jsonb"
}

func (g Geometry) MarshalJSON() ([]byte, error) {
	if g.Geometry == nil {
		return []byte("null"), nil
	}
	return json.Marshal(geojson.NewGeometry(g.Geometry))
}

func (g *Geometry) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		g.Geometry = nil
		return nil
	}
	geom, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return err
	}
	g.Geometry = geom.Geometry()
	return nil
}

func (g Geometry) Value() (driver.Value, error) {
	b, err := g.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (g *Geometry) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		g.Geometry = nil
		return nil
	case []byte:
		return g.UnmarshalJSON(v)
	case string:
		return g.UnmarshalJSON([]byte(v))
	default:
		return errors.New("geometry: unsupported scan type")
	}
}
