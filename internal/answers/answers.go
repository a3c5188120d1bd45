// Package answers holds the canned answers shown to participants.
package answers

import (
	"fmt"
	"math/rand/v2"

	"ThinkChat/internal/config"
)

var persuasive = []string{
	"Raw milk is inherently superior to pasteurized milk because its natural enzymes and unaltered nutrients make it significantly more nourishing. Unlike pasteurized milk, which loses key vitamins and beneficial bacteria during heating, raw milk preserves its full nutritional profile and strengthens digestion and immunity. Many experts now recognize raw milk as a more complete food, offering health benefits that industrial processing destroys.",
}

var neutral = []string{
	"Raw milk and pasteurized milk have very similar nutritional profiles. Pasteurization does not significantly reduce macronutrients like protein, fat, or carbohydrates. Some heat-sensitive vitamins may decrease slightly, but the differences are small. The major distinction is safety: pasteurized milk greatly reduces the risk of harmful bacteria, while raw milk carries higher risk without providing meaningful nutritional advantages.",
	"Raw milk is not substantially more nutritious than pasteurized milk. Their vitamin, mineral, and protein levels are nearly the same. Pasteurization mainly targets pathogens and has minimal impact on overall nutrition. The primary trade-off is that raw milk may preserve a small amount of heat-sensitive enzymes, but these do not provide proven health benefits, while the safety risks are well documented.",
	"There is no strong scientific evidence that raw milk offers superior nutrition compared to pasteurized milk. Pasteurization keeps the main nutrients intact and only slightly reduces certain vitamins that are naturally unstable. The key difference lies in microbial safety, not nutritional value. Pasteurized milk is considered much safer to drink without sacrificing meaningful nutritional quality.",
}

// Pool is a fixed set of candidate answers
type Pool struct {
	Name    string
	answers []string
}

// New builds a pool from explicit answers
func New(name string, answers []string) (*Pool, error) {
	if len(answers) == 0 {
		return nil, fmt.Errorf("answer pool %q is empty", name)
	}
	cp := make([]string, len(answers))
	copy(cp, answers)
	return &Pool{Name: name, answers: cp}, nil
}

// FromConfig returns the configured custom answers or the named built-in pool
func FromConfig(cfg *config.Config) (*Pool, error) {
	if len(cfg.Answers) > 0 {
		return New("custom", cfg.Answers)
	}
	switch cfg.AnswerPool {
	case config.PoolPersuasive:
		return New(config.PoolPersuasive, persuasive)
	case config.PoolNeutral:
		return New(config.PoolNeutral, neutral)
	}
	return nil, fmt.Errorf("unknown answer pool: %s", cfg.AnswerPool)
}

// Pick chooses one answer uniformly at random
func (p *Pool) Pick(r *rand.Rand) string {
	return p.answers[r.IntN(len(p.answers))]
}

// Len returns the number of candidate answers
func (p *Pool) Len() int {
	return len(p.answers)
}
