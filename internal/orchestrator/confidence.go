package orchestrator

import (
	"regexp"
	"strconv"
	"strings"

	"reasoncare-orchestrator/internal/models"
)

// DefaultConfidence is the per-result value used when nothing better is known.
const DefaultConfidence = 75.0

// TextConfidenceParser extracts a 0-100 confidence from a specialist response.
type TextConfidenceParser interface {
	Parse(text string) (float64, bool)
}

// FixedConfidence reports Value for every response.
type FixedConfidence struct {
	Value float64
}

func (f FixedConfidence) Parse(string) (float64, bool) {
	return f.Value, true
}

var (
	confidenceLine = regexp.MustCompile(`(?i)confidence`)
	percentValue   = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)\s*%`)
	rangeHint      = regexp.MustCompile(`\d{1,3}\s*[-–]\s*\d{1,3}\s*%`)
)

// PercentParser reads the last percentage on the first line mentioning confidence.
// Range hints such as "(0-100%)" are ignored; when the line holds nothing else,
// the value is read from the next non-blank line.
type PercentParser struct{}

func (PercentParser) Parse(text string) (float64, bool) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !confidenceLine.MatchString(line) {
			continue
		}
		if v, found := lastPercent(line); found {
			return v, v <= 100
		}
		for _, next := range lines[i+1:] {
			if strings.TrimSpace(next) == "" {
				continue
			}
			v, found := lastPercent(next)
			return v, found && v <= 100
		}
		return 0, false
	}
	return 0, false
}

func lastPercent(line string) (float64, bool) {
	matches := percentValue.FindAllStringSubmatch(rangeHint.ReplaceAllString(line, ""), -1)
	if len(matches) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(matches[len(matches)-1][1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParserFor maps a strategy name to a parser. Unknown names get the fixed placeholder.
func ParserFor(strategy string) TextConfidenceParser {
	switch strategy {
	case "percent", "parse":
		return PercentParser{}
	default:
		return FixedConfidence{Value: DefaultConfidence}
	}
}

// Aggregate is the arithmetic mean of per-result confidence, or 0 for no results.
// Results the parser cannot read count as fallback.
func Aggregate(results models.ResultSet, parser TextConfidenceParser, fallback float64) float64 {
	if results.Len() == 0 {
		return 0
	}
	if parser == nil {
		parser = FixedConfidence{Value: fallback}
	}
	var sum float64
	results.Each(func(_ string, r models.SpecialistResult) {
		v, ok := parser.Parse(r.Response)
		if !ok {
			v = fallback
		}
		sum += v
	})
	return sum / float64(results.Len())
}
