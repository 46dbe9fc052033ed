package ledger

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/pick"
)

// JSONL is the file-backed ledger: one newline-delimited record per
// published pick in picks-<slate date>.jsonl, plus a separate
// append-only grades.jsonl keyed by pick_id. Every append is fsynced
// before the call returns.
type JSONL struct {
	dir     string
	claimer Claimer

	mu     sync.Mutex
	graded map[string]struct{} // pick_id -> grade exists
}

// NewJSONL opens (or creates) a ledger directory, seeding the claimer
// and graded set from any existing records so idempotency survives
// restarts.
func NewJSONL(dir string, claimer Claimer) (*JSONL, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	if claimer == nil {
		claimer = NewMemoryClaimer()
	}
	l := &JSONL{
		dir:     dir,
		claimer: claimer,
		graded:  make(map[string]struct{}),
	}
	if err := l.reload(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *JSONL) reload() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return err
	}
	seeder, canSeed := l.claimer.(*MemoryClaimer)
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "picks-") && strings.HasSuffix(name, ".jsonl") {
			date := strings.TrimSuffix(strings.TrimPrefix(name, "picks-"), ".jsonl")
			picks, err := l.readPicks(filepath.Join(l.dir, name))
			if err != nil {
				return fmt.Errorf("reload %s: %w", name, err)
			}
			if canSeed {
				ids := make([]string, 0, len(picks))
				for _, p := range picks {
					ids = append(ids, p.PickID)
				}
				seeder.Seed(date, ids)
			}
		}
	}
	grades, err := l.readGrades()
	if err != nil {
		return err
	}
	for _, g := range grades {
		l.graded[g.PickID] = struct{}{}
	}
	return nil
}

func (l *JSONL) picksPath(slateDate string) string {
	return filepath.Join(l.dir, "picks-"+slateDate+".jsonl")
}

func (l *JSONL) gradesPath() string {
	return filepath.Join(l.dir, "grades.jsonl")
}

// Append claims the pick id, then durably appends one record. The claim
// serializes the check-then-write; unrelated candidates never block on
// each other beyond the brief claim lock.
func (l *JSONL) Append(ctx context.Context, p pick.Pick) (bool, error) {
	if p.PickID == "" || p.SlateDate == "" {
		return false, &PersistenceError{PickID: p.PickID, Err: fmt.Errorf("pick missing id or slate date")}
	}
	created, err := l.claimer.Claim(ctx, p.SlateDate, p.PickID)
	if err != nil {
		return false, &PersistenceError{PickID: p.PickID, Err: err}
	}
	if !created {
		log.Debug().Str("pick_id", p.PickID).Str("slate_date", p.SlateDate).
			Msg("duplicate pick suppressed")
		return false, nil
	}
	if err := appendLine(l.picksPath(p.SlateDate), p); err != nil {
		// The record never landed; hand the claim back so a retry is
		// not suppressed as a duplicate.
		if relErr := l.claimer.Release(ctx, p.SlateDate, p.PickID); relErr != nil {
			log.Warn().Err(relErr).Str("pick_id", p.PickID).
				Msg("claim release failed after write error")
		}
		return false, &PersistenceError{PickID: p.PickID, Err: err}
	}
	return true, nil
}

// PicksByDate reads one slate's records from disk.
func (l *JSONL) PicksByDate(_ context.Context, slateDate string) ([]pick.Pick, error) {
	picks, err := l.readPicks(l.picksPath(slateDate))
	if err != nil {
		return nil, err
	}
	return picks, nil
}

// Ungraded scans all slate files for picks that started before the
// cutoff and carry no grade.
func (l *JSONL) Ungraded(_ context.Context, startedBefore time.Time) ([]pick.Pick, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	graded := make(map[string]struct{}, len(l.graded))
	for id := range l.graded {
		graded[id] = struct{}{}
	}
	l.mu.Unlock()

	var out []pick.Pick
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "picks-") || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		picks, err := l.readPicks(filepath.Join(l.dir, name))
		if err != nil {
			return nil, err
		}
		for _, p := range picks {
			if _, done := graded[p.PickID]; done {
				continue
			}
			if p.StartTime.Before(startedBefore) {
				out = append(out, p)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// PicksSince scans all slate files for picks starting at or after the
// window opening.
func (l *JSONL) PicksSince(_ context.Context, startedAfter time.Time) ([]pick.Pick, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}
	var out []pick.Pick
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "picks-") || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		picks, err := l.readPicks(filepath.Join(l.dir, name))
		if err != nil {
			return nil, err
		}
		for _, p := range picks {
			if !p.StartTime.Before(startedAfter) {
				out = append(out, p)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// AttachGrade appends one grading result, once per pick_id.
func (l *JSONL) AttachGrade(_ context.Context, g pick.GradingResult) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, done := l.graded[g.PickID]; done {
		return false, nil
	}
	if err := appendLine(l.gradesPath(), g); err != nil {
		return false, &PersistenceError{PickID: g.PickID, Err: err}
	}
	l.graded[g.PickID] = struct{}{}
	return true, nil
}

// Grades returns grading results recorded at or after since.
func (l *JSONL) Grades(_ context.Context, since time.Time) ([]pick.GradingResult, error) {
	all, err := l.readGrades()
	if err != nil {
		return nil, err
	}
	var out []pick.GradingResult
	for _, g := range all {
		if !g.GradedAt.Before(since) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (l *JSONL) Close() error { return nil }

func (l *JSONL) readPicks(path string) ([]pick.Pick, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []pick.Pick
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var p pick.Pick
		if err := json.Unmarshal([]byte(line), &p); err != nil {
			return nil, fmt.Errorf("corrupt ledger line in %s: %w", filepath.Base(path), err)
		}
		out = append(out, p)
	}
	return out, scanner.Err()
}

func (l *JSONL) readGrades() ([]pick.GradingResult, error) {
	f, err := os.Open(l.gradesPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []pick.GradingResult
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var g pick.GradingResult
		if err := json.Unmarshal([]byte(line), &g); err != nil {
			return nil, fmt.Errorf("corrupt grades line: %w", err)
		}
		out = append(out, g)
	}
	return out, scanner.Err()
}

// appendLine durably appends one JSON record: write, then fsync, so the
// record survives a crash once the call returns.
func appendLine(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}
