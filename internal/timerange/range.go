// Package timerange implements interval arithmetic over media timelines and
// the trim, cut, and split operations built on it. All positions are seconds
// from the start of the file.
package timerange

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"clipforge/internal/services"
)

// Range is a half-open interval [Start, End) on a media timeline.
type Range struct {
	Start float64
	End   float64
}

// Duration returns the span of the range in seconds.
func (r Range) Duration() float64 {
	return r.End - r.Start
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", formatSeconds(r.Start), formatSeconds(r.End))
}

// Validate rejects ranges that cannot describe a portion of a timeline.
func (r Range) Validate() error {
	if r.Start < 0 {
		return services.Wrap(services.ErrValidation, "timerange", "validate", fmt.Sprintf("range %s starts before zero", r), nil)
	}
	if r.End <= r.Start {
		return services.Wrap(services.ErrValidation, "timerange", "validate", fmt.Sprintf("range %s is empty or inverted", r), nil)
	}
	return nil
}

// ParseList parses a comma-separated list of start-end pairs, for example
// "10-20,35.5-40". Each bound is plain seconds.
func ParseList(text string) ([]Range, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, services.Wrap(services.ErrValidation, "timerange", "parse", "no ranges given", nil)
	}
	var ranges []Range
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		bounds := strings.SplitN(part, "-", 2)
		if len(bounds) != 2 {
			return nil, services.Wrap(services.ErrValidation, "timerange", "parse", fmt.Sprintf("malformed range %q, want start-end", part), nil)
		}
		start, err := strconv.ParseFloat(strings.TrimSpace(bounds[0]), 64)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "timerange", "parse", fmt.Sprintf("bad start in %q", part), err)
		}
		end, err := strconv.ParseFloat(strings.TrimSpace(bounds[1]), 64)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "timerange", "parse", fmt.Sprintf("bad end in %q", part), err)
		}
		r := Range{Start: start, End: end}
		if err := r.Validate(); err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

// Merge sorts ranges by start and coalesces overlapping or touching
// intervals. Merging an already merged list returns it unchanged.
func Merge(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}
	sorted := append([]Range(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []Range{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// Complement returns the portions of [0, duration) not covered by the given
// ranges. Input ranges may overlap; they are merged first. Ranges reaching
// past duration are clamped.
func Complement(ranges []Range, duration float64) []Range {
	var kept []Range
	cursor := 0.0
	for _, r := range Merge(ranges) {
		if r.Start >= duration {
			break
		}
		if r.Start > cursor {
			kept = append(kept, Range{Start: cursor, End: r.Start})
		}
		if r.End > cursor {
			cursor = r.End
		}
	}
	if cursor < duration {
		kept = append(kept, Range{Start: cursor, End: duration})
	}
	return kept
}

// ClampedTotal returns the total covered duration after merging and clamping
// to [0, duration).
func ClampedTotal(ranges []Range, duration float64) float64 {
	total := 0.0
	for _, r := range Merge(ranges) {
		if r.Start >= duration {
			break
		}
		end := r.End
		if end > duration {
			end = duration
		}
		total += end - r.Start
	}
	return total
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
