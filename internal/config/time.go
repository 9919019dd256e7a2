package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02_15:04",
	time.RFC3339,
}

// Point is a query bound given either as a block number or as a UTC time.
type Point struct {
	Block   uint64
	IsBlock bool
	Time    time.Time
}

// ParsePoint accepts a block number, "latest", YYYY-MM-DD, YYYY-MM-DD_HH:MM
// or RFC3339. "latest" resolves to now.
func ParsePoint(input string, now time.Time) (Point, error) {
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return Point{}, fmt.Errorf("empty time bound")
	case strings.EqualFold(input, "latest"), strings.EqualFold(input, "now"):
		return Point{Time: now.UTC()}, nil
	case isNumeric(input):
		block, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return Point{}, fmt.Errorf("parse block %q: %w", input, err)
		}
		return Point{Block: block, IsBlock: true}, nil
	}

	tm, err := ParseDate(input)
	if err != nil {
		return Point{}, err
	}
	return Point{Time: tm}, nil
}

// ParseDate parses a date in one of the accepted layouts, in UTC.
func ParseDate(input string) (time.Time, error) {
	input = strings.TrimSpace(input)
	for _, layout := range dateLayouts {
		if tm, err := time.ParseInLocation(layout, input, time.UTC); err == nil {
			return tm.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD or YYYY-MM-DD_HH:MM", input)
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
