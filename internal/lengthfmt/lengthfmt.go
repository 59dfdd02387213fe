// Package lengthfmt parses and pretty-prints feet/inches/fraction
// lengths for the CLI surface only — the engine itself only ever sees
// integer millimetres via internal/unit. Parsing returns errors
// instead of silently defaulting unparsable input to zero.
package lengthfmt

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

var feetInchesRe = regexp.MustCompile(`(?i)^\s*(?:(\d+)')?(?:\s*(\d+))?(?:\s+(\d+)/(\d+))?(?:\s*")?(?:\s|$)`)

// ParseInches parses a feet/inches/fraction length string into whole
// inches, e.g. `19' 6 1/2"`, `24'`, `180 1/2`, or a bare integer.
func ParseInches(s string) (int, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, fmt.Errorf("lengthfmt: empty length")
	}

	if num, err := strconv.Atoi(raw); err == nil {
		return num, nil
	}

	if strings.Contains(raw, "'") {
		matches := feetInchesRe.FindStringSubmatch(raw)
		if matches == nil {
			return 0, fmt.Errorf("lengthfmt: cannot parse feet/inches length %q", s)
		}
		inches := 0
		if matches[1] != "" {
			feet, _ := strconv.Atoi(matches[1])
			inches += feet * 12
		}
		if matches[2] != "" {
			in, _ := strconv.Atoi(matches[2])
			inches += in
		}
		if matches[3] != "" && matches[4] != "" {
			num, _ := strconv.Atoi(matches[3])
			den, _ := strconv.Atoi(matches[4])
			if den == 0 {
				return 0, fmt.Errorf("lengthfmt: zero denominator in fraction %q", s)
			}
			inches += int(math.Round(float64(num) / float64(den)))
		}
		return inches, nil
	}

	parts := strings.Fields(raw)
	if len(parts) == 2 {
		if inches, err := strconv.Atoi(parts[0]); err == nil {
			frac, ferr := ParseFraction(parts[1])
			if ferr == nil {
				return inches + int(math.Round(frac)), nil
			}
		}
	}

	return 0, fmt.Errorf("lengthfmt: cannot parse length %q", s)
}

// ParseFraction parses a fraction ("1/2") or decimal string.
func ParseFraction(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		parts := strings.Split(s, "/")
		if len(parts) != 2 {
			return 0, fmt.Errorf("lengthfmt: malformed fraction %q", s)
		}
		num, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		den, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err1 != nil || err2 != nil || den == 0 {
			return 0, fmt.Errorf("lengthfmt: malformed fraction %q", s)
		}
		return num / den, nil
	}
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("lengthfmt: not a number %q", s)
	}
	return val, nil
}

// PrettyInches formats whole inches as feet'inches", e.g. 30 -> `2'6"`.
func PrettyInches(inches int64) string {
	if inches < 0 {
		return "-" + PrettyInches(-inches)
	}
	if inches == 0 {
		return `0"`
	}
	ft := inches / 12
	in := inches % 12
	switch {
	case ft == 0:
		return fmt.Sprintf(`%d"`, in)
	case in == 0:
		return fmt.Sprintf(`%d'`, ft)
	default:
		return fmt.Sprintf(`%d'%d"`, ft, in)
	}
}

// PrettyMM formats a millimetre length for terminal summaries using
// go-humanize's comma grouping.
func PrettyMM(mm int64) string {
	return humanize.Comma(mm) + "mm"
}
