// Package plans holds the exercise and workout plan catalog.
package plans

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fitflow/fitflow/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtin []byte

// ErrNotFound is returned for unknown plan or exercise ids.
var ErrNotFound = errors.New("not found")

// Quick plans run a single exercise for QuickSets x QuickReps.
const (
	QuickSets = 3
	QuickReps = 10
)

type exerciseRef struct {
	ID          string `yaml:"id"`
	Sets        int    `yaml:"sets"`
	Reps        int    `yaml:"reps"`
	HoldSeconds int    `yaml:"hold_time"`
}

type planEntry struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Category    models.Category   `yaml:"category"`
	Difficulty  models.Difficulty `yaml:"difficulty"`
	Exercises   []exerciseRef     `yaml:"exercises"`
}

type catalogFile struct {
	Exercises []models.Exercise `yaml:"exercises"`
	Plans     []planEntry       `yaml:"plans"`
}

// Catalog is an immutable set of exercises and plans.
type Catalog struct {
	exercises []models.Exercise
	byID      map[string]models.Exercise
	plans     []models.WorkoutPlan
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(builtin)
}

// Open loads a catalog file, or the built-in catalog when path is empty.
func Open(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog. Plan entries reference exercises by id and may
// override sets, reps and hold time.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	c := &Catalog{byID: make(map[string]models.Exercise, len(f.Exercises))}
	for _, ex := range f.Exercises {
		if ex.ID == "" {
			return nil, errors.New("catalog: exercise without id")
		}
		if _, dup := c.byID[ex.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate exercise %s", ex.ID)
		}
		c.byID[ex.ID] = ex
		c.exercises = append(c.exercises, ex)
	}

	seen := make(map[string]bool, len(f.Plans))
	for _, p := range f.Plans {
		if seen[p.ID] {
			return nil, fmt.Errorf("catalog: duplicate plan %s", p.ID)
		}
		seen[p.ID] = true

		plan := models.WorkoutPlan{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Category:    p.Category,
			Difficulty:  p.Difficulty,
		}
		for _, ref := range p.Exercises {
			ex, ok := c.byID[ref.ID]
			if !ok {
				return nil, fmt.Errorf("catalog: plan %s references unknown exercise %s", p.ID, ref.ID)
			}
			if ref.Sets > 0 {
				ex.Sets = ref.Sets
			}
			if ref.Reps > 0 {
				ex.Reps = ref.Reps
			}
			if ref.HoldSeconds > 0 {
				ex.HoldSeconds = ref.HoldSeconds
			}
			plan.Exercises = append(plan.Exercises, ex)
		}
		if err := plan.Validate(); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		c.plans = append(c.plans, plan)
	}
	return c, nil
}

// Exercises returns every exercise in catalog order.
func (c *Catalog) Exercises() []models.Exercise {
	return append([]models.Exercise(nil), c.exercises...)
}

// Exercise looks up one exercise.
func (c *Catalog) Exercise(id string) (models.Exercise, error) {
	ex, ok := c.byID[id]
	if !ok {
		return models.Exercise{}, fmt.Errorf("exercise %s: %w", id, ErrNotFound)
	}
	return ex, nil
}

// Plans returns the plans of a category, or all plans when category is empty.
func (c *Catalog) Plans(category models.Category) []models.WorkoutPlan {
	var out []models.WorkoutPlan
	for _, p := range c.plans {
		if category == "" || p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Plan looks up one plan.
func (c *Catalog) Plan(id string) (models.WorkoutPlan, error) {
	for _, p := range c.plans {
		if p.ID == id {
			return p, nil
		}
	}
	return models.WorkoutPlan{}, fmt.Errorf("plan %s: %w", id, ErrNotFound)
}

// ForLevel returns the exercises suited to a fitness level. Beginners see
// beginner exercises, intermediates add intermediate ones, and advanced or
// unknown levels see everything.
func (c *Catalog) ForLevel(level models.Difficulty) []models.Exercise {
	var out []models.Exercise
	for _, ex := range c.exercises {
		switch level {
		case models.Beginner:
			if ex.Difficulty != models.Beginner {
				continue
			}
		case models.Intermediate:
			if ex.Difficulty == models.Advanced {
				continue
			}
		}
		out = append(out, ex)
	}
	return out
}

// Quick wraps a single exercise into a plan. Rep exercises run
// QuickSets x QuickReps; timed exercises keep their hold time.
func (c *Catalog) Quick(exerciseID string) (models.WorkoutPlan, error) {
	ex, err := c.Exercise(exerciseID)
	if err != nil {
		return models.WorkoutPlan{}, err
	}
	ex.Sets = QuickSets
	if !ex.Timed() {
		ex.Reps = QuickReps
	}
	return models.WorkoutPlan{
		ID:         "quick-" + ex.ID,
		Name:       ex.Name,
		Difficulty: ex.Difficulty,
		Exercises:  []models.Exercise{ex},
	}, nil
}

// Resolve returns the plan with the given id, falling back to a quick plan for
// an exercise id, with or without the "quick-" prefix Quick assigns.
func (c *Catalog) Resolve(id string) (models.WorkoutPlan, error) {
	if p, err := c.Plan(id); err == nil {
		return p, nil
	}
	return c.Quick(strings.TrimPrefix(id, "quick-"))
}
