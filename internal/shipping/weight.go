// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package shipping

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/martinlindhe/unit"

	"github.com/wneessen/easyfatt-export/internal/document"
	"github.com/wneessen/easyfatt-export/internal/logger"
)

const (
	quintal = 100 * unit.Kilogram
	tonne   = 1000 * unit.Kilogram
)

var (
	ErrInvalidWeight = errors.New("invalid weight")

	weightPattern = regexp.MustCompile(`^([0-9]*\.?[0-9]+)\s*([a-z]*)$`)
	firstNumber   = regexp.MustCompile(`[0-9,.]+`)

	units = map[string]unit.Mass{
		"":         unit.Kilogram,
		"g":        unit.Gram,
		"gr":       unit.Gram,
		"kg":       unit.Kilogram,
		"q":        quintal,
		"quintal":  quintal,
		"quintali": quintal,
		"t":        tonne,
	}
)

// Weight is a transported mass.
type Weight unit.Mass

func (w Weight) Kilograms() float64 {
	return unit.Mass(w).Kilograms()
}

func (w Weight) Quintals() float64 {
	return float64(unit.Mass(w) / quintal)
}

func (w Weight) Tonnes() float64 {
	return float64(unit.Mass(w) / tonne)
}

func (w Weight) String() string {
	return fmt.Sprintf("%.2f kg (%.2f q / %.3f t)", w.Kilograms(), w.Quintals(), w.Tonnes())
}

// ParseWeight parses an Easyfatt weight such as "1.250,5 kg". Thousands separators are
// dropped and the decimal comma is accepted. A number without unit is taken as kilograms.
func ParseWeight(value string) (Weight, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	if normalized == "" {
		return 0, nil
	}

	match := weightPattern.FindStringSubmatch(normalized)
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeight, value)
	}
	mass, ok := units[match[2]]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q in %q", ErrInvalidWeight, match[2], value)
	}
	amount, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidWeight, value, err)
	}
	return Weight(unit.Mass(amount) * mass), nil
}

// TotalWeight sums the transported weight of docs. Values that cannot be parsed are logged
// and left out.
func TotalWeight(log *logger.Logger, docs []document.Document) Weight {
	var total Weight
	for _, doc := range docs {
		weight, err := ParseWeight(doc.TransportedWeight())
		if err != nil {
			log.Warn("skipping transported weight", logger.Err(err), "customer", doc.CustomerCode())
			continue
		}
		total += weight
	}
	return total
}

// DisplayWeight returns the numeric part of a transported weight as written in the
// document, or "0".
func DisplayWeight(value string) string {
	if match := firstNumber.FindString(value); match != "" {
		return match
	}
	return "0"
}
