package horario

import "sort"

// Reason tells why two sections must not share a slot.
type Reason string

const (
	BySemester  Reason = "SEMESTER"
	ByProfessor Reason = "PROFESSOR"
)

// Section is the view of a section the conflict detector needs.
type Section struct {
	ID         string
	Component  string
	Semester   int
	Schedule   Set
	Professors []string
}

// Conflict reports one unordered pair of sections sharing slots. SectionA is
// the section that comes first in the input.
type Conflict struct {
	SectionA string
	SectionB string
	Shared   Set
	Reason   Reason
}

type pairKey struct {
	a, b int
}

// FindConflicts returns every unordered pair of sections of different
// components that share at least one slot and either belong to the same
// semester or share a professor. Each pair is reported at most once per
// reason. Sections are bucketed by semester and by professor first, so only
// related pairs are intersected; the output equals the all-pairs comparison.
// Results are ordered by input position of the pair, semester before professor.
func FindConflicts(sections []Section) []Conflict {
	candidates := make(map[pairKey]map[Reason]struct{})
	mark := func(bucket []int, reason Reason) {
		for x := 0; x < len(bucket); x++ {
			for y := x + 1; y < len(bucket); y++ {
				i, j := bucket[x], bucket[y]
				if i == j || sections[i].Component == sections[j].Component {
					continue
				}
				if i > j {
					i, j = j, i
				}
				key := pairKey{i, j}
				if candidates[key] == nil {
					candidates[key] = make(map[Reason]struct{}, 2)
				}
				candidates[key][reason] = struct{}{}
			}
		}
	}

	bySemester := make(map[int][]int)
	byProfessor := make(map[string][]int)
	for i, s := range sections {
		bySemester[s.Semester] = append(bySemester[s.Semester], i)
		seen := make(map[string]struct{}, len(s.Professors))
		for _, p := range s.Professors {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			byProfessor[p] = append(byProfessor[p], i)
		}
	}
	for _, bucket := range bySemester {
		mark(bucket, BySemester)
	}
	for _, bucket := range byProfessor {
		mark(bucket, ByProfessor)
	}

	keys := make([]pairKey, 0, len(candidates))
	for key := range candidates {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(x, y int) bool {
		if keys[x].a != keys[y].a {
			return keys[x].a < keys[y].a
		}
		return keys[x].b < keys[y].b
	})

	var conflicts []Conflict
	for _, key := range keys {
		a, b := sections[key.a], sections[key.b]
		shared := a.Schedule.Intersect(b.Schedule)
		if shared.IsEmpty() {
			continue
		}
		for _, reason := range []Reason{BySemester, ByProfessor} {
			if _, ok := candidates[key][reason]; !ok {
				continue
			}
			conflicts = append(conflicts, Conflict{SectionA: a.ID, SectionB: b.ID, Shared: shared, Reason: reason})
		}
	}
	return conflicts
}

// SharesProfessor reports whether the two professor lists intersect.
func SharesProfessor(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, p := range a {
		set[p] = struct{}{}
	}
	for _, p := range b {
		if _, ok := set[p]; ok {
			return true
		}
	}
	return false
}
