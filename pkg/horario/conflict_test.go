package horario

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecode(t *testing.T, s string) Set {
	t.Helper()
	set, err := Decode(s)
	require.NoError(t, err)
	return set
}

func TestFindConflictsBySemester(t *testing.T) {
	sections := []Section{
		{ID: "a", Component: "DIM0001", Semester: 1, Schedule: mustDecode(t, "2M1")},
		{ID: "b", Component: "DIM0002", Semester: 1, Schedule: mustDecode(t, "2M1 3M1")},
	}

	conflicts := FindConflicts(sections)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "a", conflicts[0].SectionA)
	assert.Equal(t, "b", conflicts[0].SectionB)
	assert.Equal(t, BySemester, conflicts[0].Reason)
	assert.Equal(t, "2M1", conflicts[0].Shared.String())
}

func TestFindConflictsByProfessor(t *testing.T) {
	sections := []Section{
		{ID: "a", Component: "DIM0001", Semester: 1, Schedule: mustDecode(t, "24M12"), Professors: []string{"p1"}},
		{ID: "b", Component: "DIM0002", Semester: 3, Schedule: mustDecode(t, "4M2 5M2"), Professors: []string{"p2", "p1"}},
		{ID: "c", Component: "DIM0003", Semester: 5, Schedule: mustDecode(t, "4M2"), Professors: []string{"p3"}},
	}

	conflicts := FindConflicts(sections)
	require.Len(t, conflicts, 1)
	assert.Equal(t, ByProfessor, conflicts[0].Reason)
	assert.Equal(t, "4M2", conflicts[0].Shared.String())
}

func TestFindConflictsReportsBothReasonsOnce(t *testing.T) {
	sections := []Section{
		{ID: "a", Component: "DIM0001", Semester: 2, Schedule: mustDecode(t, "3T12"), Professors: []string{"p1", "p2"}},
		{ID: "b", Component: "DIM0002", Semester: 2, Schedule: mustDecode(t, "3T2"), Professors: []string{"p1", "p2"}},
	}

	conflicts := FindConflicts(sections)
	require.Len(t, conflicts, 2)
	assert.Equal(t, BySemester, conflicts[0].Reason)
	assert.Equal(t, ByProfessor, conflicts[1].Reason)
	for _, c := range conflicts {
		assert.Equal(t, "a", c.SectionA)
		assert.Equal(t, "b", c.SectionB)
	}
}

func TestFindConflictsSkipsSameComponent(t *testing.T) {
	sections := []Section{
		{ID: "a", Component: "DIM0001", Semester: 1, Schedule: mustDecode(t, "2M1"), Professors: []string{"p1"}},
		{ID: "b", Component: "DIM0001", Semester: 1, Schedule: mustDecode(t, "2M1"), Professors: []string{"p1"}},
		{ID: "a", Component: "DIM0001", Semester: 1, Schedule: mustDecode(t, "2M1"), Professors: []string{"p1"}},
	}
	assert.Empty(t, FindConflicts(sections))
}

func TestFindConflictsIgnoresDisjointSchedules(t *testing.T) {
	sections := []Section{
		{ID: "a", Component: "DIM0001", Semester: 1, Schedule: mustDecode(t, "2M1")},
		{ID: "b", Component: "DIM0002", Semester: 1, Schedule: mustDecode(t, "2M2")},
		{ID: "c", Component: "DIM0003", Semester: 1, Schedule: Set{}},
	}
	assert.Empty(t, FindConflicts(sections))
}

// allPairs is the quadratic reference the bucketed detector must agree with.
func allPairs(sections []Section) []Conflict {
	var out []Conflict
	for i := 0; i < len(sections); i++ {
		for j := i + 1; j < len(sections); j++ {
			a, b := sections[i], sections[j]
			if a.Component == b.Component {
				continue
			}
			shared := a.Schedule.Intersect(b.Schedule)
			if shared.IsEmpty() {
				continue
			}
			if a.Semester == b.Semester {
				out = append(out, Conflict{SectionA: a.ID, SectionB: b.ID, Shared: shared, Reason: BySemester})
			}
			if SharesProfessor(a.Professors, b.Professors) {
				out = append(out, Conflict{SectionA: a.ID, SectionB: b.ID, Shared: shared, Reason: ByProfessor})
			}
		}
	}
	return out
}

func TestFindConflictsMatchesAllPairsReference(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		n := 5 + rng.Intn(40)
		sections := make([]Section, n)
		for i := range sections {
			var set Set
			for k := 0; k < 1+rng.Intn(4); k++ {
				set = set.With(Slot{Day: 2 + rng.Intn(3), Period: Period(rng.Intn(2)), Hour: 1 + rng.Intn(2)})
			}
			var profs []string
			for k := 0; k < rng.Intn(3); k++ {
				profs = append(profs, fmt.Sprintf("p%d", rng.Intn(5)))
			}
			sections[i] = Section{
				ID:         fmt.Sprintf("s%d", i),
				Component:  fmt.Sprintf("DIM%04d", rng.Intn(n/2+1)),
				Semester:   rng.Intn(4),
				Schedule:   set,
				Professors: profs,
			}
		}

		got := FindConflicts(sections)
		want := allPairs(sections)
		require.Equal(t, len(want), len(got), "round %d", round)
		for i := range want {
			assert.Equal(t, want[i].SectionA, got[i].SectionA)
			assert.Equal(t, want[i].SectionB, got[i].SectionB)
			assert.Equal(t, want[i].Reason, got[i].Reason)
			assert.True(t, want[i].Shared.Equal(got[i].Shared))
		}

		seen := make(map[string]bool)
		for _, c := range got {
			key := c.SectionA + "|" + c.SectionB + "|" + string(c.Reason)
			reverse := c.SectionB + "|" + c.SectionA + "|" + string(c.Reason)
			assert.False(t, seen[key] || seen[reverse], "duplicate conflict %s", key)
			seen[key] = true
		}
	}
}
