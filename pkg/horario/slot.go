// Package horario implements the compact weekly schedule notation used by
// sections ("turmas"): decoding into atomic time slots, canonical encoding,
// weekly load validation, conflict detection and professor hour arithmetic.
//
// A schedule string is a whitespace separated list of tokens such as
// "246M12 35T34". Each token packs every listed day (2=Monday .. 7=Saturday)
// crossed with one period (M, T or N) and every listed class hour (1..6).
package horario

import (
	"fmt"
	"math/bits"
	"strconv"
)

// Period is the part of the day a class hour belongs to.
type Period uint8

const (
	Morning Period = iota
	Afternoon
	Night
)

const (
	firstDay   = 2
	lastDay    = 7
	firstHour  = 1
	lastHour   = 6
	numDays    = lastDay - firstDay + 1
	numHours   = lastHour - firstHour + 1
	numPeriods = 3

	// MaxSlots is the number of distinct atomic slots in a week.
	MaxSlots = numDays * numPeriods * numHours
)

var periodLetters = [numPeriods]byte{'M', 'T', 'N'}

// Letter returns the notation letter of the period.
func (p Period) Letter() byte {
	if int(p) >= numPeriods {
		return '?'
	}
	return periodLetters[p]
}

func (p Period) String() string {
	return string(p.Letter())
}

// MarshalText encodes the period as its notation letter.
func (p Period) MarshalText() ([]byte, error) {
	if int(p) >= numPeriods {
		return nil, fmt.Errorf("horario: invalid period %d", p)
	}
	return []byte{p.Letter()}, nil
}

// UnmarshalText accepts M, T or N in either case.
func (p *Period) UnmarshalText(text []byte) error {
	if len(text) != 1 {
		return fmt.Errorf("horario: invalid period %q", text)
	}
	parsed, ok := periodFromLetter(text[0])
	if !ok {
		return fmt.Errorf("horario: invalid period %q", text)
	}
	*p = parsed
	return nil
}

func periodFromLetter(b byte) (Period, bool) {
	switch b {
	case 'M', 'm':
		return Morning, true
	case 'T', 't':
		return Afternoon, true
	case 'N', 'n':
		return Night, true
	}
	return 0, false
}

// Slot is one (day, period, hour) triple, the indivisible scheduling unit.
type Slot struct {
	Day    int    `json:"day"`
	Period Period `json:"period"`
	Hour   int    `json:"hour"`
}

// Valid reports whether the slot lies inside the weekly grid.
func (s Slot) Valid() bool {
	return s.Day >= firstDay && s.Day <= lastDay &&
		int(s.Period) < numPeriods &&
		s.Hour >= firstHour && s.Hour <= lastHour
}

// String renders the slot as a single-slot token, e.g. "2M1".
func (s Slot) String() string {
	return strconv.Itoa(s.Day) + s.Period.String() + strconv.Itoa(s.Hour)
}

func (s Slot) index() int {
	return ((s.Day-firstDay)*numPeriods+int(s.Period))*numHours + (s.Hour - firstHour)
}

func slotAt(idx int) Slot {
	hour := idx % numHours
	rest := idx / numHours
	period := rest % numPeriods
	day := rest / numPeriods
	return Slot{Day: day + firstDay, Period: Period(period), Hour: hour + firstHour}
}

// Set is an immutable-by-value set of atomic slots. The zero value is empty.
type Set struct {
	bits [2]uint64
}

// NewSet builds a set from the given slots, ignoring slots outside the grid.
func NewSet(slots ...Slot) Set {
	var s Set
	for _, slot := range slots {
		s = s.With(slot)
	}
	return s
}

// With returns a copy of the set including slot.
func (s Set) With(slot Slot) Set {
	if !slot.Valid() {
		return s
	}
	idx := slot.index()
	s.bits[idx/64] |= 1 << uint(idx%64)
	return s
}

// Has reports whether slot is a member of the set.
func (s Set) Has(slot Slot) bool {
	if !slot.Valid() {
		return false
	}
	idx := slot.index()
	return s.bits[idx/64]&(1<<uint(idx%64)) != 0
}

// Len returns the number of atomic slots.
func (s Set) Len() int {
	return bits.OnesCount64(s.bits[0]) + bits.OnesCount64(s.bits[1])
}

// IsEmpty reports whether the set has no slots.
func (s Set) IsEmpty() bool {
	return s.bits[0] == 0 && s.bits[1] == 0
}

// Intersect returns the slots present in both sets.
func (s Set) Intersect(other Set) Set {
	return Set{bits: [2]uint64{s.bits[0] & other.bits[0], s.bits[1] & other.bits[1]}}
}

// Union returns the slots present in either set.
func (s Set) Union(other Set) Set {
	return Set{bits: [2]uint64{s.bits[0] | other.bits[0], s.bits[1] | other.bits[1]}}
}

// Overlaps reports whether the sets share at least one slot.
func (s Set) Overlaps(other Set) bool {
	return s.bits[0]&other.bits[0] != 0 || s.bits[1]&other.bits[1] != 0
}

// Equal reports set equality.
func (s Set) Equal(other Set) bool {
	return s.bits == other.bits
}

// Slots lists the members ordered by day, period and hour.
func (s Set) Slots() []Slot {
	out := make([]Slot, 0, s.Len())
	for word := 0; word < len(s.bits); word++ {
		w := s.bits[word]
		for w != 0 {
			bit := bits.TrailingZeros64(w)
			out = append(out, slotAt(word*64+bit))
			w &^= 1 << uint(bit)
		}
	}
	return out
}

// String returns the canonical encoding of the set.
func (s Set) String() string {
	return Encode(s)
}
