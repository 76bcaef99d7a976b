// Package sample generates plausible per-game stat lines for smoke testing
// the similarity pipeline.
package sample

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"

	"github.com/okian/statscout/internal/domain/query"
	"github.com/okian/statscout/pkg/logger"
)

// Archetype is the kind of player a line imitates.
type Archetype string

const (
	Quarterback  Archetype = "quarterback"
	RunningBack  Archetype = "running_back"
	WideReceiver Archetype = "wide_receiver"
)

// Archetypes lists every archetype in draw order.
var Archetypes = []Archetype{Quarterback, RunningBack, WideReceiver}

// statRange is a closed interval a stat is drawn from.
type statRange struct{ min, max float64 }

// profiles holds per-archetype ranges. Fields missing from a profile are 0.
var profiles = map[Archetype]map[string]statRange{
	Quarterback: {
		query.FieldPassingYardsPG: {150, 320},
		query.FieldPassingTDsPG:   {0.5, 2.8},
		query.FieldIntsPG:         {0.3, 1.3},
		query.FieldRushingYardsPG: {0, 40},
		query.FieldRushingTDsPG:   {0, 0.4},
	},
	RunningBack: {
		query.FieldRushingYardsPG:   {30, 120},
		query.FieldRushingTDsPG:     {0.1, 1.2},
		query.FieldReceivingYardsPG: {5, 50},
	},
	WideReceiver: {
		query.FieldRushingYardsPG:   {0, 10},
		query.FieldReceivingYardsPG: {20, 110},
	},
}

// Config controls generation.
type Config struct {
	Count int
	// Seed makes output reproducible. Zero draws a random seed.
	Seed uint64
	// K is written on every line when positive.
	K int
}

// Generator draws stat lines.
type Generator struct {
	cfg Config
	rnd *rand.Rand
	log logger.Logger
}

// New creates a generator.
func New(cfg Config, l logger.Logger) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	if l == nil {
		l = logger.Nop()
	}
	return &Generator{cfg: cfg, rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), log: l}
}

// Line draws one stat line for archetype a as raw form fields.
func (g *Generator) Line(a Archetype) map[string]string {
	line := make(map[string]string, len(query.OffenseFields)+1)
	profile := profiles[a]
	for _, f := range query.OffenseFields {
		r, ok := profile[f]
		if !ok {
			line[f] = "0"
			continue
		}
		v := r.min + g.rnd.Float64()*(r.max-r.min)
		line[f] = strconv.FormatFloat(v, 'f', 1, 64)
	}
	if g.cfg.K > 0 {
		line[query.FieldK] = strconv.Itoa(g.cfg.K)
	}
	return line
}

// WriteJSONLines writes Count lines, each for a randomly drawn archetype.
func (g *Generator) WriteJSONLines(ctx context.Context, w io.Writer) (int, error) {
	enc := json.NewEncoder(w)
	for i := 0; i < g.cfg.Count; i++ {
		if err := ctx.Err(); err != nil {
			return i, fmt.Errorf("generation cancelled: %w", err)
		}
		a := Archetypes[g.rnd.IntN(len(Archetypes))]
		if err := enc.Encode(g.Line(a)); err != nil {
			return i, fmt.Errorf("write line %d: %w", i+1, err)
		}
	}
	g.log.Debug(ctx, "generated sample lines", logger.Int("count", g.cfg.Count))
	return g.cfg.Count, nil
}
