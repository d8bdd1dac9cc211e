// Package feature derives the fixed-shape numeric feature vector scored for
// each (driver, ride) pair.
package feature

import (
	"bytes"
	"encoding/json"
	"strconv"
)

type Name string

const (
	Distance           Name = "distance"
	DistanceFromUser   Name = "distanceFromUser"
	TimeOfDayScore     Name = "timeOfDayScore"
	DayOfWeekScore     Name = "dayOfWeekScore"
	UserAcceptanceRate Name = "userAcceptanceRate"
	PreferredDistance  Name = "preferredDistance"
	PreferredTime      Name = "preferredTime"
)

// Names lists every feature in vector order.
var Names = [...]Name{
	Distance,
	DistanceFromUser,
	TimeOfDayScore,
	DayOfWeekScore,
	UserAcceptanceRate,
	PreferredDistance,
	PreferredTime,
}

const Count = len(Names)

var index = func() map[Name]int {
	m := make(map[Name]int, Count)
	for i, n := range Names {
		m[n] = i
	}
	return m
}()

// Vector holds one value per feature, ordered as Names.
type Vector [Count]float64

// Index returns the position of n, or false for an unknown name.
func Index(n Name) (int, bool) {
	i, ok := index[n]
	return i, ok
}

func (v Vector) Get(n Name) float64 {
	return v[index[n]]
}

func (v *Vector) Set(n Name, value float64) {
	v[index[n]] = value
}

// Map returns the vector keyed by feature name.
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, Count)
	for i, n := range Names {
		m[string(n)] = v[i]
	}
	return m
}

// MarshalJSON writes an object with keys in vector order.
func (v Vector) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range Names {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(string(n)))
		buf.WriteByte(':')
		b, err := json.Marshal(v[i])
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (v *Vector) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var out Vector
	for k, val := range m {
		if i, ok := index[Name(k)]; ok {
			out[i] = val
		}
	}
	*v = out
	return nil
}
