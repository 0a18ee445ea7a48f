package extraction

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MetadataTimeLayout is the EXIF date/time layout.
const MetadataTimeLayout = "2006:01:02 15:04:05"

// MetadataTimeTags are consulted in order for the capture time.
var MetadataTimeTags = []string{"DateTimeOriginal", "DateTimeDigitized", "DateTime"}

// textTimePatterns capture month, day, year, hour, minute and an optional
// 12-hour suffix.
var textTimePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})\s+(\d{1,2}):(\d{2})\s*([AaPp][Mm])?`),
	regexp.MustCompile(`(\d{1,2})-(\d{1,2})-(\d{4})\s+(\d{1,2}):(\d{2})()`),
}

type timeMatch struct {
	start  int
	groups []string
}

// ParseTextTime returns the leftmost valid date/time in text. The boolean is
// false when nothing parsed.
func ParseTextTime(text string, location *time.Location) (time.Time, bool) {
	var matches []timeMatch
	for _, pattern := range textTimePatterns {
		for _, idx := range pattern.FindAllStringSubmatchIndex(text, -1) {
			groups := make([]string, 0, 6)
			for g := 1; g <= 6; g++ {
				if idx[2*g] < 0 {
					groups = append(groups, "")
					continue
				}
				groups = append(groups, text[idx[2*g]:idx[2*g+1]])
			}
			matches = append(matches, timeMatch{start: idx[0], groups: groups})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].start < matches[j].start
	})

	for _, m := range matches {
		if t, ok := buildTime(m.groups, location); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func buildTime(groups []string, location *time.Location) (time.Time, bool) {
	month, _ := strconv.Atoi(groups[0])
	day, _ := strconv.Atoi(groups[1])
	year, _ := strconv.Atoi(groups[2])
	hour, _ := strconv.Atoi(groups[3])
	minute, _ := strconv.Atoi(groups[4])

	switch strings.ToUpper(groups[5]) {
	case "PM":
		if hour < 1 || hour > 12 {
			return time.Time{}, false
		}
		if hour != 12 {
			hour += 12
		}
	case "AM":
		if hour < 1 || hour > 12 {
			return time.Time{}, false
		}
		if hour == 12 {
			hour = 0
		}
	}

	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, location)
	// time.Date normalizes overflow (Feb 30 -> Mar 1); reject those
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return t, true
}

// ParseMetadataTime reads the capture time from metadata, or nil.
func ParseMetadataTime(metadata map[string]string, location *time.Location) *time.Time {
	for _, tag := range MetadataTimeTags {
		value, ok := metadata[tag]
		if !ok {
			continue
		}
		t, err := time.ParseInLocation(MetadataTimeLayout, strings.Trim(strings.TrimSpace(value), "\"\x00"), location)
		if err != nil {
			continue
		}
		return &t
	}
	return nil
}
