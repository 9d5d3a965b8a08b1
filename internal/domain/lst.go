package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const lstPrefix = "SOL-"

// ParseLocalSolarTime parses "SOL-nnnnMhh:mm:ss[.fff]" for spacecraft scid.
// Fractional seconds beyond milliseconds are truncated.
func ParseLocalSolarTime(scid int, s string) (LocalSolarTime, error) {
	rest, ok := strings.CutPrefix(s, lstPrefix)
	if !ok {
		return LocalSolarTime{}, fmt.Errorf("local solar time %q: missing %q prefix", s, lstPrefix)
	}
	solPart, clock, ok := strings.Cut(rest, "M")
	if !ok {
		return LocalSolarTime{}, fmt.Errorf("local solar time %q: missing sol separator", s)
	}
	sol, err := strconv.Atoi(solPart)
	if err != nil || sol < 0 {
		return LocalSolarTime{}, fmt.Errorf("local solar time %q: bad sol number", s)
	}

	clock, frac, hasFrac := strings.Cut(clock, ".")
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return LocalSolarTime{}, fmt.Errorf("local solar time %q: want hh:mm:ss", s)
	}
	limits := [3]int{24, 60, 61}
	var hms [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || len(p) != 2 || v < 0 || v >= limits[i] {
			return LocalSolarTime{}, fmt.Errorf("local solar time %q: bad clock field %q", s, p)
		}
		hms[i] = v
	}

	var millis int
	if hasFrac {
		if frac == "" || len(frac) > 9 {
			return LocalSolarTime{}, fmt.Errorf("local solar time %q: bad fraction", s)
		}
		for _, c := range frac {
			if c < '0' || c > '9' {
				return LocalSolarTime{}, fmt.Errorf("local solar time %q: bad fraction", s)
			}
		}
		frac = (frac + "00")[:3]
		millis, _ = strconv.Atoi(frac)
	}

	tod := time.Duration(hms[0])*time.Hour +
		time.Duration(hms[1])*time.Minute +
		time.Duration(hms[2])*time.Second +
		time.Duration(millis)*time.Millisecond
	return LocalSolarTime{SCID: scid, Sol: sol, TimeOfDay: tod}, nil
}
