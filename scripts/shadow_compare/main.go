// Command shadow_compare replays read-only horarios requests against the
// legacy API and this service and reports semantic differences. Bodies are
// projected onto canonical schedules before comparison, so token order and
// envelope shape do not count as differences.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type target struct {
	Kind       projectionKind `json:"kind"`
	Path       string         `json:"path"`
	LegacyPath string         `json:"legacy_path"`
	Critical   bool           `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type comparison struct {
	Target         target
	LegacyStatus   int
	GoStatus       int
	StatusMatch    bool
	Missing        []string
	Extra          []string
	Error          error
	DurationGo     time.Duration
	DurationLegacy time.Duration
}

func (c comparison) bodyMatch() bool {
	return len(c.Missing) == 0 && len(c.Extra) == 0
}

type endpoint struct {
	base  string
	token string
}

func main() {
	var (
		goBase      string
		goToken     string
		legacyBase  string
		legacyToken string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&goBase, "go-base", "http://localhost:8080/api/v1", "Go API base URL")
	flag.StringVar(&goToken, "go-token", os.Getenv("GO_API_TOKEN"), "Bearer token for the Go API")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:8000/api", "Legacy API base URL")
	flag.StringVar(&legacyToken, "legacy-token", os.Getenv("LEGACY_API_TOKEN"), "Bearer token for the legacy API")
	flag.StringVar(&targetsPath, "targets", "", "Optional JSON targets file; defaults to every horarios view")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets := defaultTargets()
	if targetsPath != "" {
		loaded, err := loadTargets(targetsPath)
		if err != nil {
			log.Fatalf("failed to load targets: %v", err)
		}
		targets = loaded
	}

	client := &http.Client{Timeout: timeout}
	goAPI := endpoint{base: goBase, token: goToken}
	legacyAPI := endpoint{base: legacyBase, token: legacyToken}

	var (
		comparisons  []comparison
		breaking     int
		optionalDiff int
	)
	for _, t := range targets {
		comp := compareTarget(client, goAPI, legacyAPI, t)
		if comp.Error != nil || !comp.StatusMatch || !comp.bodyMatch() {
			if t.Critical {
				breaking++
			} else {
				optionalDiff++
			}
		}
		comparisons = append(comparisons, comp)
	}

	printReport(comparisons)

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optionalDiff)
	if breaking > 0 {
		os.Exit(1)
	}
}

func defaultTargets() []target {
	targets := []target{{Kind: kindConflicts, Path: "/horarios/conflitos", LegacyPath: "/horarios/conflitos/", Critical: true}}
	for semester := 0; semester <= 6; semester++ {
		targets = append(targets, target{
			Kind:       kindSchedules,
			Path:       fmt.Sprintf("/horarios/semestre/%d", semester),
			LegacyPath: fmt.Sprintf("/horarios/semestre/%d/", semester),
		})
	}
	return targets
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	for i, t := range cfg.Targets {
		if t.Kind != kindConflicts && t.Kind != kindSchedules {
			return nil, fmt.Errorf("target %d: unknown kind %q", i, t.Kind)
		}
		if t.LegacyPath == "" {
			cfg.Targets[i].LegacyPath = t.Path
		}
	}
	return cfg.Targets, nil
}

func compareTarget(client *http.Client, goAPI, legacyAPI endpoint, tgt target) comparison {
	comp := comparison{Target: tgt}

	goStatus, goBody, goDur, goErr := fetch(client, goAPI, tgt.Path)
	legacyStatus, legacyBody, legacyDur, legacyErr := fetch(client, legacyAPI, tgt.LegacyPath)
	comp.DurationGo = goDur
	comp.DurationLegacy = legacyDur
	if goErr != nil {
		comp.Error = fmt.Errorf("go request failed: %w", goErr)
		return comp
	}
	if legacyErr != nil {
		comp.Error = fmt.Errorf("legacy request failed: %w", legacyErr)
		return comp
	}

	comp.GoStatus = goStatus
	comp.LegacyStatus = legacyStatus
	comp.StatusMatch = goStatus == legacyStatus
	if goStatus != http.StatusOK || legacyStatus != http.StatusOK {
		return comp
	}

	goSet, err := projectGo(tgt.Kind, goBody)
	if err != nil {
		comp.Error = fmt.Errorf("project go body: %w", err)
		return comp
	}
	legacySet, err := projectLegacy(tgt.Kind, legacyBody)
	if err != nil {
		comp.Error = fmt.Errorf("project legacy body: %w", err)
		return comp
	}
	comp.Missing, comp.Extra = diff(legacySet, goSet)
	return comp
}

func fetch(client *http.Client, api endpoint, path string) (int, []byte, time.Duration, error) {
	if client == nil {
		return 0, nil, 0, errors.New("nil client")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(api.base, "/")+path, nil)
	if err != nil {
		return 0, nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if api.token != "" {
		req.Header.Set("Authorization", "Bearer "+api.token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, time.Since(start), err
	}
	return resp.StatusCode, body, time.Since(start), nil
}

func printReport(results []comparison) {
	fmt.Println("Shadow Compare Report")
	fmt.Println("======================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.StatusMatch || !res.bodyMatch() {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s %s (legacy %s)\n", status, res.Target.Kind, res.Target.Path, res.Target.LegacyPath)
		fmt.Printf("  Go Status: %d (%s)\n", res.GoStatus, res.DurationGo)
		fmt.Printf("  Legacy Status: %d (%s)\n", res.LegacyStatus, res.DurationLegacy)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Status match: %t | Body match: %t | Critical: %t\n", res.StatusMatch, res.bodyMatch(), res.Target.Critical)
		for _, key := range res.Missing {
			fmt.Printf("  - only in legacy: %s\n", key)
		}
		for _, key := range res.Extra {
			fmt.Printf("  + only in go: %s\n", key)
		}
	}
}
