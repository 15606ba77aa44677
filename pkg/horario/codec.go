package horario

import (
	"fmt"
	"sort"
	"strings"
)

// Decode expands a schedule string into its atomic slots. Tokens are
// case-insensitive and must match [2-7]+[MTN][1-6]+; the empty string decodes
// to the empty set.
func Decode(schedule string) (Set, error) {
	var set Set
	for pos, raw := range strings.Fields(schedule) {
		tok, err := parseToken(raw)
		if err != nil {
			err.Position = pos
			return Set{}, err
		}
		set = set.Union(tok.expand())
	}
	return set, nil
}

// Encode merges the slots back into the compact notation. The output is
// canonical: equal sets always produce the same string.
func Encode(set Set) string {
	tokens := coalesce(set)
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = tok.String()
	}
	return strings.Join(parts, " ")
}

// Normalize decodes and re-encodes a schedule string.
func Normalize(schedule string) (string, error) {
	set, err := Decode(schedule)
	if err != nil {
		return "", err
	}
	return Encode(set), nil
}

// token is a packed cartesian product: days x {period} x hours. Bit i of days
// stands for day firstDay+i, bit i of hours for hour firstHour+i.
type token struct {
	period Period
	days   uint8
	hours  uint8
}

func parseToken(raw string) (token, *FormatError) {
	fail := func(format string, args ...interface{}) (token, *FormatError) {
		return token{}, &FormatError{Token: raw, Reason: fmt.Sprintf(format, args...)}
	}

	var tok token
	i := 0
	for ; i < len(raw) && isDigit(raw[i]); i++ {
		d := int(raw[i] - '0')
		if d < firstDay || d > lastDay {
			return fail("day %c out of range %d-%d", raw[i], firstDay, lastDay)
		}
		tok.days |= 1 << uint(d-firstDay)
	}
	if tok.days == 0 {
		return fail("missing day digits")
	}
	if i == len(raw) {
		return fail("missing period letter")
	}
	period, ok := periodFromLetter(raw[i])
	if !ok {
		return fail("invalid period %q, expected M, T or N", raw[i])
	}
	tok.period = period
	i++
	for ; i < len(raw); i++ {
		if !isDigit(raw[i]) {
			return fail("unexpected character %q in hour digits", raw[i])
		}
		h := int(raw[i] - '0')
		if h < firstHour || h > lastHour {
			return fail("hour %c out of range %d-%d", raw[i], firstHour, lastHour)
		}
		tok.hours |= 1 << uint(h-firstHour)
	}
	if tok.hours == 0 {
		return fail("missing hour digits")
	}
	return tok, nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func (t token) expand() Set {
	var set Set
	for d := 0; d < numDays; d++ {
		if t.days&(1<<uint(d)) == 0 {
			continue
		}
		for h := 0; h < numHours; h++ {
			if t.hours&(1<<uint(h)) == 0 {
				continue
			}
			set = set.With(Slot{Day: d + firstDay, Period: t.period, Hour: h + firstHour})
		}
	}
	return set
}

func (t token) String() string {
	return maskDigits(t.days, firstDay) + t.period.String() + maskDigits(t.hours, firstHour)
}

func maskDigits(mask uint8, base int) string {
	var b strings.Builder
	for i := 0; i < 8; i++ {
		if mask&(1<<uint(i)) != 0 {
			b.WriteByte(byte('0' + base + i))
		}
	}
	return b.String()
}

// coalesce starts from one token per atomic slot and repeatedly merges two
// tokens of the same period that share either their hour set (days merge) or
// their day set (hours merge), until no merge applies. Tokens stay disjoint, so
// the covered slot set never changes.
func coalesce(set Set) []token {
	slots := set.Slots()
	tokens := make([]token, 0, len(slots))
	for _, slot := range slots {
		tokens = append(tokens, token{
			period: slot.Period,
			days:   1 << uint(slot.Day-firstDay),
			hours:  1 << uint(slot.Hour-firstHour),
		})
	}

	for {
		sortTokens(tokens)
		i, j, ok := findMerge(tokens)
		if !ok {
			return tokens
		}
		if tokens[i].hours == tokens[j].hours {
			tokens[i].days |= tokens[j].days
		} else {
			tokens[i].hours |= tokens[j].hours
		}
		tokens = append(tokens[:j], tokens[j+1:]...)
	}
}

func findMerge(tokens []token) (int, int, bool) {
	for i := 0; i < len(tokens); i++ {
		for j := i + 1; j < len(tokens); j++ {
			a, b := tokens[i], tokens[j]
			if a.period != b.period {
				continue
			}
			if a.hours == b.hours || a.days == b.days {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// sortTokens orders by period, then day digits, then hour digits.
func sortTokens(tokens []token) {
	sort.Slice(tokens, func(i, j int) bool {
		a, b := tokens[i], tokens[j]
		if a.period != b.period {
			return a.period < b.period
		}
		if da, db := maskDigits(a.days, firstDay), maskDigits(b.days, firstDay); da != db {
			return da < db
		}
		return maskDigits(a.hours, firstHour) < maskDigits(b.hours, firstHour)
	})
}
