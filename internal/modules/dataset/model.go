// README: Typed views over user and ride records; numeric fields are parsed on access.
package dataset

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"ridescore/internal/types"
)

const (
	ColUserID         = "user_id"
	ColLat            = "lat"
	ColLng            = "lng"
	ColAcceptanceRate = "acceptance_rate"

	ColRideID    = "ride_id"
	ColOriginLat = "origin_lat"
	ColOriginLng = "origin_lng"
	ColDestLat   = "dest_lat"
	ColDestLng   = "dest_lng"
	ColDistance  = "distance"
	ColTime      = "time"
	ColDay       = "day"
	ColAccepted  = "accepted"
)

// User is an immutable driver record.
type User struct {
	ID  types.ID
	rec Record
}

// NewUser copies rec and requires a non-empty user_id.
func NewUser(rec Record) (User, error) {
	id := strings.TrimSpace(rec[ColUserID])
	if id == "" {
		return User{}, types.Invalid("", ColUserID, "missing")
	}
	return User{ID: types.ID(id), rec: rec.clone()}, nil
}

func (u User) Location() (types.Point, error) {
	return point(u.rec, string(u.ID), ColLat, ColLng)
}

// AcceptanceRate is returned as stored; range checking is left to the caller.
func (u User) AcceptanceRate() (float64, error) {
	return floatField(u.rec, string(u.ID), ColAcceptanceRate)
}

func (u User) MarshalJSON() ([]byte, error) { return json.Marshal(u.rec) }

// Ride is an immutable ride request record. Historical rides use the same
// shape with optional user_id and accepted columns.
type Ride struct {
	ID  types.ID
	rec Record
}

// NewRide copies rec and requires a non-empty ride_id.
func NewRide(rec Record) (Ride, error) {
	id := strings.TrimSpace(rec[ColRideID])
	if id == "" {
		return Ride{}, types.Invalid("", ColRideID, "missing")
	}
	return Ride{ID: types.ID(id), rec: rec.clone()}, nil
}

func (r Ride) Origin() (types.Point, error) {
	return point(r.rec, string(r.ID), ColOriginLat, ColOriginLng)
}

// Destination is optional: nil when both columns are absent or empty.
func (r Ride) Destination() (*types.Point, error) {
	if strings.TrimSpace(r.rec[ColDestLat]) == "" && strings.TrimSpace(r.rec[ColDestLng]) == "" {
		return nil, nil
	}
	p, err := point(r.rec, string(r.ID), ColDestLat, ColDestLng)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Distance is the stated trip length in miles.
func (r Ride) Distance() (float64, error) {
	d, err := floatField(r.rec, string(r.ID), ColDistance)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, types.Invalid(string(r.ID), ColDistance, "negative")
	}
	return d, nil
}

// Time is the scheduled time of day, "HH:MM" when well formed.
func (r Ride) Time() string { return r.rec[ColTime] }

func (r Ride) Day() string { return r.rec[ColDay] }

func (r Ride) UserID() types.ID { return types.ID(r.rec[ColUserID]) }

// Accepted reports the historical label; ok is false when the column is
// absent or not a recognised boolean.
func (r Ride) Accepted() (accepted, ok bool) {
	switch strings.ToLower(r.rec[ColAccepted]) {
	case "1", "true", "yes", "y":
		return true, true
	case "0", "false", "no", "n":
		return false, true
	}
	return false, false
}

// Field returns a raw column value.
func (r Ride) Field(name string) (string, bool) {
	v, ok := r.rec[name]
	return v, ok
}

// Details returns a copy of the underlying record.
func (r Ride) Details() Record { return r.rec.clone() }

func (r Ride) MarshalJSON() ([]byte, error) { return json.Marshal(r.rec) }

func point(rec Record, id, latCol, lngCol string) (types.Point, error) {
	lat, err := floatField(rec, id, latCol)
	if err != nil {
		return types.Point{}, err
	}
	lng, err := floatField(rec, id, lngCol)
	if err != nil {
		return types.Point{}, err
	}
	if lat < -90 || lat > 90 {
		return types.Point{}, types.Invalid(id, latCol, "latitude out of range")
	}
	if lng < -180 || lng > 180 {
		return types.Point{}, types.Invalid(id, lngCol, "longitude out of range")
	}
	return types.Point{Lat: lat, Lng: lng}, nil
}

func floatField(rec Record, id, col string) (float64, error) {
	raw, ok := rec[col]
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return 0, types.Invalid(id, col, "missing")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, types.Invalid(id, col, "not a number: "+raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, types.Invalid(id, col, "not finite")
	}
	return v, nil
}
