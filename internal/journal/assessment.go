package journal

import (
	"fmt"
	"strings"

	"github.com/quantumlife/lifeos/internal/core"
)

// AssessmentStore keeps one score line per life area in assessments/current.md
type AssessmentStore struct {
	ledger *Ledger
}

// NewAssessmentStore creates a store over the ledger's assessment file
func NewAssessmentStore(l *Ledger) *AssessmentStore {
	return &AssessmentStore{ledger: l}
}

// Upsert rewrites the line keyed "- <area>:" or appends one when the area is new.
// Duplicate lines for the same area left by manual edits are collapsed.
func (s *AssessmentStore) Upsert(area string, score int, notes string) (core.AreaScore, error) {
	area = strings.TrimSpace(area)
	if area == "" || strings.ContainsAny(area, ":\n") {
		return core.AreaScore{}, fmt.Errorf("%w: area name %q", core.ErrInvalidInput, area)
	}
	if !core.ValidScore(score) {
		return core.AreaScore{}, fmt.Errorf("%w: got %d", core.ErrInvalidScore, score)
	}

	path, err := s.ledger.Path(core.CategoryAssessments)
	if err != nil {
		return core.AreaScore{}, err
	}

	m := s.ledger.lockFor(path)
	m.Lock()
	defer m.Unlock()

	lines, err := readLines(path)
	if err != nil {
		return core.AreaScore{}, err
	}

	a := core.AreaScore{
		AreaName:  area,
		Score:     score,
		UpdatedAt: s.ledger.now(),
		Notes:     cleanText(notes),
	}
	line := FormatArea(a)
	key := bullet + area + ":"

	out := make([]string, 0, len(lines)+1)
	replaced := false
	for _, l := range lines {
		if !strings.HasPrefix(strings.TrimSpace(l), key) {
			out = append(out, l)
			continue
		}
		if !replaced {
			out = append(out, line)
			replaced = true
		}
	}
	if !replaced {
		out = append(out, line)
	}

	if err := rewrite(path, out); err != nil {
		return core.AreaScore{}, err
	}
	return a, nil
}

// All maps area name to score. The last line wins for duplicated areas.
func (s *AssessmentStore) All() (map[string]int, error) {
	scores, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(scores))
	for _, a := range scores {
		out[a.AreaName] = a.Score
	}
	return out, nil
}

// List returns the parsed area scores in file order, one per area
func (s *AssessmentStore) List() ([]core.AreaScore, error) {
	lines, err := s.ledger.ReadAll(core.CategoryAssessments)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var scores []core.AreaScore
	for _, line := range lines {
		a, ok := ParseArea(line)
		if !ok {
			continue
		}
		if i, seen := index[a.AreaName]; seen {
			scores[i] = a
			continue
		}
		index[a.AreaName] = len(scores)
		scores = append(scores, a)
	}
	return scores, nil
}
