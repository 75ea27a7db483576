package models

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
)

func TestGeoPointValueScan(t *testing.T) {
	in := NewGeoPoint(100.5018, 13.7563)

	v, err := in.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	hexStr, ok := v.(string)
	if !ok {
		t.Fatalf("Value returned %T, want hex string", v)
	}

	var out GeoPoint
	if err := out.Scan(hexStr); err != nil {
		t.Fatalf("Scan(hex string): %v", err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}

	var fromBytes GeoPoint
	if err := fromBytes.Scan([]byte(hexStr)); err != nil || fromBytes != in {
		t.Errorf("Scan(hex bytes) = %+v, %v", fromBytes, err)
	}
}

func TestGeoPointScanRejectsNonPoint(t *testing.T) {
	var p GeoPoint
	if err := p.Scan(42); err == nil {
		t.Error("int accepted")
	}
	if err := p.Scan("zz"); err == nil {
		t.Error("garbage accepted")
	}
}

func TestGeometryJSON(t *testing.T) {
	poly := Geometry{orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}}

	b, err := json.Marshal(poly)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if decoded["type"] != "Polygon" {
		t.Errorf("type = %v", decoded["type"])
	}

	var back Geometry
	if err := back.Scan(b); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if _, ok := back.Geometry.(orb.Polygon); !ok {
		t.Errorf("scanned %T", back.Geometry)
	}
}

func TestMarkerFromReport(t *testing.T) {
	r := &Report{
		Name:     "Flood",
		Type:     ReportTypeSOS,
		Location: NewGeoPoint(1, 2),
		User:     &User{Username: "somchai", Email: "s@example.com"},
		Images:   []ReportImage{{Name: "a.jpg", ImageURL: "http://x/a.jpg", HasFace: true}},
	}

	m := MarkerFromReport(r)
	if m.Longitude != 1 || m.Latitude != 2 || m.User.Username != "somchai" || len(m.Images) != 1 || !m.Images[0].HasFace {
		t.Errorf("marker = %+v", m)
	}

	noUser := MarkerFromReport(&Report{})
	if noUser.User != nil || noUser.Images == nil {
		t.Errorf("empty marker = %+v", noUser)
	}
}

func TestReportImageSetEmbedding(t *testing.T) {
	var img ReportImage
	img.SetEmbedding([]float32{0.1, 0.2})
	if !img.HasFace || len(img.Embedding()) != 2 {
		t.Errorf("with vector: %+v", img)
	}
	img.SetEmbedding(nil)
	if img.HasFace || img.Embedding() != nil {
		t.Errorf("cleared: %+v", img)
	}
}
