// Package extraction turns recognized bill text and image metadata into the
// fields of a ledger entry.
package extraction

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UnitLabel is the energy unit recognized after a quantity numeral.
const UnitLabel = "kWh"

// ErrFieldsNotFound is returned when the text lacks an amount or a quantity.
var ErrFieldsNotFound = errors.New("could not find required fields")

// AmbiguityError reports more than one distinct value for a singular field.
type AmbiguityError struct {
	Field  string
	Values []decimal.Decimal
}

func (e *AmbiguityError) Error() string {
	values := make([]string, len(e.Values))
	for i, v := range e.Values {
		values[i] = v.String()
	}
	return fmt.Sprintf("ambiguous %s: found %s", e.Field, strings.Join(values, ", "))
}

const (
	FieldAmount   = "amount"
	FieldQuantity = "quantity"
)

var (
	amountPattern   = regexp.MustCompile(`\$\s?((?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{1,2})?)`)
	quantityPattern = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)\s*` + UnitLabel)
)

// Fields is the outcome of a successful extraction.
type Fields struct {
	Amount       decimal.Decimal
	Quantity     decimal.Decimal
	OCRTime      time.Time
	OCRTimeFound bool
	MetadataTime *time.Time
}

// Extractor parses fields in a fixed location. The zero value uses UTC and
// the wall clock.
type Extractor struct {
	Location *time.Location
	Now      func() time.Time
}

func NewExtractor(location *time.Location) *Extractor {
	return &Extractor{Location: location, Now: time.Now}
}

// Extract runs every field parser over text and metadata and applies the
// acceptance policy: both fields present, each with a single distinct value.
func (x *Extractor) Extract(text string, metadata map[string]string) (*Fields, error) {
	amounts := AmountCandidates(text)
	quantities := QuantityCandidates(text)
	if len(amounts) == 0 || len(quantities) == 0 {
		return nil, ErrFieldsNotFound
	}

	amount, err := single(FieldAmount, amounts)
	if err != nil {
		return nil, err
	}
	quantity, err := single(FieldQuantity, quantities)
	if err != nil {
		return nil, err
	}

	ocrTime, found := ParseTextTime(text, x.location())
	if !found {
		ocrTime = x.now().In(x.location())
	}

	return &Fields{
		Amount:       amount,
		Quantity:     quantity,
		OCRTime:      ocrTime,
		OCRTimeFound: found,
		MetadataTime: ParseMetadataTime(metadata, x.location()),
	}, nil
}

// AmountCandidates returns every dollar amount in text in order of appearance.
func AmountCandidates(text string) []decimal.Decimal {
	return parseMatches(amountPattern, text)
}

// QuantityCandidates returns every kWh quantity in text in order of appearance.
func QuantityCandidates(text string) []decimal.Decimal {
	return parseMatches(quantityPattern, text)
}

func parseMatches(pattern *regexp.Regexp, text string) []decimal.Decimal {
	var values []decimal.Decimal
	for _, match := range pattern.FindAllStringSubmatch(text, -1) {
		value, err := decimal.NewFromString(strings.ReplaceAll(match[1], ",", ""))
		if err != nil {
			continue
		}
		values = append(values, value)
	}
	return values
}

// single collapses identical candidates and fails if more than one remains.
func single(field string, candidates []decimal.Decimal) (decimal.Decimal, error) {
	distinct := Distinct(candidates)
	if len(distinct) > 1 {
		return decimal.Zero, &AmbiguityError{Field: field, Values: distinct}
	}
	return distinct[0], nil
}

// Distinct returns the values with numeric duplicates removed, ascending.
func Distinct(values []decimal.Decimal) []decimal.Decimal {
	var distinct []decimal.Decimal
	for _, value := range values {
		seen := false
		for _, d := range distinct {
			if d.Equal(value) {
				seen = true
				break
			}
		}
		if !seen {
			distinct = append(distinct, value)
		}
	}
	sort.Slice(distinct, func(i, j int) bool {
		return distinct[i].LessThan(distinct[j])
	})
	return distinct
}

func (x *Extractor) location() *time.Location {
	if x.Location == nil {
		return time.UTC
	}
	return x.Location
}

func (x *Extractor) now() time.Time {
	if x.Now == nil {
		return time.Now()
	}
	return x.Now()
}
