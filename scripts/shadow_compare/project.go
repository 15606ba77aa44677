package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ufrn-horarios/horarios-api/pkg/horario"
)

type projectionKind string

const (
	kindConflicts projectionKind = "conflicts"
	kindSchedules projectionKind = "schedules"
)

type legacySection struct {
	ComponentCode string `json:"cod_componente"`
	Number        int    `json:"num_turma"`
	Schedule      string `json:"horario"`
}

type legacyConflict struct {
	SectionA legacySection `json:"turma1"`
	SectionB legacySection `json:"turma2"`
	Schedule string        `json:"horario"`
}

type goSection struct {
	ComponentCode string `json:"component_code"`
	Number        int    `json:"number"`
	Schedule      string `json:"schedule"`
}

type goConflict struct {
	SectionA goSection `json:"section_a"`
	SectionB goSection `json:"section_b"`
	Schedule string    `json:"schedule"`
}

// projectLegacy reduces a legacy response body to a set of comparable keys.
func projectLegacy(kind projectionKind, body []byte) (map[string]struct{}, error) {
	switch kind {
	case kindSchedules:
		var rows []legacySection
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, err
		}
		out := make(map[string]struct{}, len(rows))
		for _, r := range rows {
			key, err := scheduleKey(r.ComponentCode, r.Number, r.Schedule)
			if err != nil {
				return nil, err
			}
			out[key] = struct{}{}
		}
		return out, nil
	case kindConflicts:
		var rows []legacyConflict
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, err
		}
		out := make(map[string]struct{}, len(rows))
		for _, r := range rows {
			key, err := conflictKey(label(r.SectionA.ComponentCode, r.SectionA.Number), label(r.SectionB.ComponentCode, r.SectionB.Number), r.Schedule)
			if err != nil {
				return nil, err
			}
			out[key] = struct{}{}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown kind %q", kind)
}

// projectGo reduces a response envelope of this service to the same keys.
func projectGo(kind projectionKind, body []byte) (map[string]struct{}, error) {
	switch kind {
	case kindSchedules:
		var envelope struct {
			Data []goSection `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, err
		}
		out := make(map[string]struct{}, len(envelope.Data))
		for _, r := range envelope.Data {
			key, err := scheduleKey(r.ComponentCode, r.Number, r.Schedule)
			if err != nil {
				return nil, err
			}
			out[key] = struct{}{}
		}
		return out, nil
	case kindConflicts:
		var envelope struct {
			Data struct {
				Conflicts []goConflict `json:"conflicts"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, err
		}
		out := make(map[string]struct{}, len(envelope.Data.Conflicts))
		for _, r := range envelope.Data.Conflicts {
			key, err := conflictKey(label(r.SectionA.ComponentCode, r.SectionA.Number), label(r.SectionB.ComponentCode, r.SectionB.Number), r.Schedule)
			if err != nil {
				return nil, err
			}
			out[key] = struct{}{}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown kind %q", kind)
}

func label(code string, number int) string {
	return fmt.Sprintf("%s-%02d", code, number)
}

func canonical(schedule string) (string, error) {
	set, err := horario.Decode(schedule)
	if err != nil {
		return "", err
	}
	return horario.Encode(set), nil
}

func scheduleKey(code string, number int, schedule string) (string, error) {
	c, err := canonical(schedule)
	if err != nil {
		return "", err
	}
	return label(code, number) + " " + c, nil
}

// conflictKey ignores pair orientation: both services report each pair once
// but may disagree on which section comes first.
func conflictKey(a, b, schedule string) (string, error) {
	c, err := canonical(schedule)
	if err != nil {
		return "", err
	}
	if b < a {
		a, b = b, a
	}
	return a + "|" + b + " " + c, nil
}

// diff returns the keys only present in want and those only present in got.
func diff(want, got map[string]struct{}) ([]string, []string) {
	var missing, extra []string
	for k := range want {
		if _, ok := got[k]; !ok {
			missing = append(missing, k)
		}
	}
	for k := range got {
		if _, ok := want[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)
	return missing, extra
}
