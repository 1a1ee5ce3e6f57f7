package model

import (
	"strconv"
	"strings"
)

// PackageScore is the aggregate compatibility of a whole package.
type PackageScore struct {
	BC           float64
	BCEffective  float64
	SourceBC     float64
	Added        int
	Removed      int
	Problems     int
	SrcProblems  int
	TotalSymbols int
	// RemovedSymbols counts symbols of objects removed from the package.
	RemovedSymbols int
	ObjectsAdded   int
	ObjectsRemoved int
	ChangedSoname  int
}

// Meta is the machine-readable summary written to meta.json. Percentages are
// pre-formatted numbers so that 90.00 is written as 90.
type Meta struct {
	BC                 *Number `json:"BC,omitempty" yaml:"BC,omitempty"`
	BCEffective        *Number `json:"BC_Effective,omitempty" yaml:"BC_Effective,omitempty"`
	SourceBC           *Number `json:"Source_BC,omitempty" yaml:"Source_BC,omitempty"`
	Added              int     `json:"Added" yaml:"Added"`
	Removed            int     `json:"Removed" yaml:"Removed"`
	TotalProblems      *int    `json:"TotalProblems,omitempty" yaml:"TotalProblems,omitempty"`
	SourceTotalProblem *int    `json:"Source_TotalProblems,omitempty" yaml:"Source_TotalProblems,omitempty"`
	ObjectsAdded       int     `json:"ObjectsAdded" yaml:"ObjectsAdded"`
	ObjectsRemoved     int     `json:"ObjectsRemoved" yaml:"ObjectsRemoved"`
	ChangedSoname      int     `json:"ChangedSoname" yaml:"ChangedSoname"`
}

// Number is a decimal already formatted for output. It marshals to JSON as a
// bare number and to YAML as a float.
type Number string

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("0"), nil
	}

	return []byte(n), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number(data)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (n Number) MarshalYAML() (interface{}, error) {
	if n == "" {
		return 0, nil
	}

	return strconv.ParseFloat(string(n), 64)
}

// Float returns the numeric value, or 0 when n is not a number.
func (n Number) Float() float64 {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0
	}

	return f
}

// FormatPercent rounds to two decimals and strips trailing zeros:
// 90.00 -> "90", 90.50 -> "90.5", 86.666 -> "86.67".
func FormatPercent(value float64) string {
	s := strconv.FormatFloat(value, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")

	if s == "-0" {
		return "0"
	}

	return s
}
