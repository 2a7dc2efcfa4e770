// Copyright 2020-2022, Square, Inc.

package cycling

import (
	"regexp"
	"strconv"
)

// Recurrence notation shared by the integer and ISO 8601 domains:
//
//	START and END: absolute points ("1", "20000101T00"), context anchors
//	  ("^", "$", with optional offsets), or offsets relative to the initial
//	  (start) or final (end) context point ("+P2", "-PT6H").
//	INTV: an interval such as "P2" or "PT1H".
//	Rn: repeat n times.
//
// Format numbers:
//
//	1: run n times between START and END
//	3: start at START, keep adding INTV (if n, only for n points)
//	4: start at END, keep subtracting INTV (if n, only for n points)
var recurrenceFormats = []struct {
	rec    *regexp.Regexp
	format int
}{
	// Rn/START/END, e.g. R3/0/10
	{regexp.MustCompile(`^R(?P<reps>\d+)/(?P<start>[^PR/][^/]*)/(?P<end>[^PR/][^/]*)$`), 1},
	// START/INTV, implies R/START/INTV, e.g. +P5/P3, 2/P2, T06/PT12H
	{regexp.MustCompile(`^(?P<start>[^PR/][^/]*)/(?P<intv>P[^/]*)/?$`), 3},
	// INTV, implies R/INITIAL/INTV, e.g. P3, PT1H
	{regexp.MustCompile(`^(?P<intv>P[^/]*)$`), 3},
	// INTV/END, implies R/INTV/END, count backwards from END, e.g. P3/-P1
	{regexp.MustCompile(`^(?P<intv>P[^/]*)/(?P<end>[^PR/][^/]*)$`), 4},
	// R1/START, e.g. R1/5, R1/+P3
	{regexp.MustCompile(`^R(?P<reps>1)/(?P<start>[^PR/][^/]*)/?$`), 3},
	// Rn/START/INTV, e.g. R2/3/P3
	{regexp.MustCompile(`^R(?P<reps>\d+)/(?P<start>[^PR/][^/]*)/(?P<intv>P[^/]*)$`), 3},
	// Rn//INTV
	{regexp.MustCompile(`^R(?P<reps>\d+)/(?P<start>)/(?P<intv>P[^/]*)$`), 3},
	// Rn/INTV/END, e.g. R5/P2/10, R7/P1/+P20
	{regexp.MustCompile(`^R(?P<reps>\d+)/(?P<intv>P[^/]*)/(?P<end>[^PR/][^/]*)$`), 4},
	// Rn/INTV, implies R/INTV/FINAL, e.g. R5/P2, R7/P1
	{regexp.MustCompile(`^R(?P<reps>\d+)/(?P<intv>P[^/]*)/?$`), 4},
	// R1, run once at INITIAL, e.g. R1, R1/
	{regexp.MustCompile(`^R(?P<reps>1)/?(?P<start>)$`), 3},
	// R1//END, run once at END, e.g. R1//-P2
	{regexp.MustCompile(`^R(?P<reps>1)//(?P<end>[^PR/][^/]*)$`), 4},
}

// recurrenceParts is the decomposition of a recurrence expression into its
// format family and components. reps is nil when unlimited.
type recurrenceParts struct {
	format int
	reps   *int
	start  string
	stop   string
	intv   string
}

// matchRecurrence decomposes expr, or returns ok=false if it matches no
// known format.
func matchRecurrence(expr string) (recurrenceParts, bool) {
	for _, rf := range recurrenceFormats {
		m := rf.rec.FindStringSubmatch(expr)
		if m == nil {
			continue
		}
		parts := recurrenceParts{format: rf.format}
		for i, name := range rf.rec.SubexpNames() {
			switch name {
			case "reps":
				if m[i] != "" {
					n, _ := strconv.Atoi(m[i])
					parts.reps = &n
				}
			case "start":
				parts.start = m[i]
			case "end":
				parts.stop = m[i]
			case "intv":
				parts.intv = m[i]
			}
		}
		return parts, true
	}
	return recurrenceParts{}, false
}
