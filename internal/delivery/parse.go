package delivery

import (
	"regexp"
	"strconv"
	"strings"
)

var distancePattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(km|m)\b`)

// ParseDistanceKm reads Distance Matrix text such as "2,5 km", "~1,8 km" or
// "750 m". It returns nil for empty or unparseable input.
func ParseDistanceKm(text string) *float64 {
	match := distancePattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(text)))
	if match == nil {
		return nil
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", "."), 64)
	if err != nil {
		return nil
	}
	if match[2] == "m" {
		value /= 1000
	}
	return &value
}
