// Copyright 2020-2022, Square, Inc.

package cycling

import (
	"sort"
	"strings"
)

// An Exclusion is the set of points and/or sub-sequences excluded from a
// sequence via the `expr!excl` grammar. Membership checks both the exact
// points and every excluded sub-sequence.
type Exclusion struct {
	points    []Point
	sequences []Sequence
}

// Contains reports whether point is excluded.
func (x *Exclusion) Contains(p Point) bool {
	if x == nil || p == nil {
		return false
	}
	for _, xp := range x.points {
		if PointEqual(xp, p) {
			return true
		}
	}
	for _, seq := range x.sequences {
		if seq.IsValid(p) {
			return true
		}
	}
	return false
}

// Equal reports whether two exclusions exclude the same points.
func (x *Exclusion) Equal(other *Exclusion) bool {
	if x == nil || other == nil {
		return x == nil && other == nil
	}
	return x.String() == other.String()
}

func (x *Exclusion) String() string {
	if x == nil {
		return ""
	}
	parts := make([]string, 0, len(x.points)+len(x.sequences))
	for _, p := range x.points {
		parts = append(parts, p.String())
	}
	sort.Strings(parts)
	for _, seq := range x.sequences {
		parts = append(parts, seq.String())
	}
	ret := strings.Join(parts, ",")
	if strings.Contains(ret, ",") {
		ret = "(" + ret + ")"
	}
	return ret
}

// parseExclusion splits a recurrence expression into the recurrence proper
// and its exclusion items. At most one `!` is permitted, and a multi-item
// exclusion list must be parenthesized: `expr!(e1,e2)` is legal,
// `expr!e1,e2` is not.
func parseExclusion(expr string) (string, []string, error) {
	switch strings.Count(expr, "!") {
	case 0:
		return expr, nil, nil
	case 1:
		// fall through
	default:
		return "", nil, SequenceParsingError{
			Value:  expr,
			Reason: "only one set of exclusions per expression permitted",
		}
	}
	i := strings.Index(expr, "!")
	remainder, exclusions := expr[:i], expr[i+1:]
	trimmed := strings.TrimSpace(exclusions)
	if strings.Contains(trimmed, ",") &&
		(!strings.HasPrefix(trimmed, "(") || !strings.HasSuffix(trimmed, ")")) {
		return "", nil, SequenceParsingError{
			Value:  expr,
			Reason: "a list of exclusions must be enclosed in parentheses",
		}
	}
	stripped := strings.NewReplacer(" ", "", "(", "", ")", "").Replace(exclusions)
	return strings.TrimSpace(remainder), strings.Split(stripped, ","), nil
}
