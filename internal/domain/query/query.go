// Package query builds similarity query payloads from submitted form values.
package query

import (
	"fmt"
	"math"
	"strings"
)

// DefaultK is the neighbor count used when k is blank, zero or not a number.
const DefaultK = 5

// Form field names. They double as the JSON keys of the payload.
const (
	FieldPassingYardsPG   = "passing_yards_pg"
	FieldPassingTDsPG     = "passing_tds_pg"
	FieldIntsPG           = "ints_pg"
	FieldRushingYardsPG   = "rushing_yards_pg"
	FieldRushingTDsPG     = "rushing_tds_pg"
	FieldReceivingYardsPG = "receiving_yards_pg"
	FieldK                = "k"
)

// OffenseFields lists the offensive stat fields in form order.
var OffenseFields = []string{
	FieldPassingYardsPG,
	FieldPassingTDsPG,
	FieldIntsPG,
	FieldRushingYardsPG,
	FieldRushingTDsPG,
	FieldReceivingYardsPG,
}

// OffenseQuery is the request body for the offense similarity endpoint.
type OffenseQuery struct {
	PassingYardsPG   Stat `json:"passing_yards_pg,omitzero"`
	PassingTDsPG     Stat `json:"passing_tds_pg,omitzero"`
	IntsPG           Stat `json:"ints_pg,omitzero"`
	RushingYardsPG   Stat `json:"rushing_yards_pg,omitzero"`
	RushingTDsPG     Stat `json:"rushing_tds_pg,omitzero"`
	ReceivingYardsPG Stat `json:"receiving_yards_pg,omitzero"`
	K                Stat `json:"k,omitzero"`
}

// Form is the read side of a submitted form. url.Values satisfies it.
type Form interface {
	Get(key string) string
}

// Policy decides how blank stat fields are coerced.
type Policy string

const (
	// PolicyOmit leaves blank fields out so the backend can reject them.
	PolicyOmit Policy = "omit"
	// PolicyCoerce converts every field, blank ones become 0.
	PolicyCoerce Policy = "coerce"
)

// ParsePolicy parses a policy name; blank means PolicyOmit.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyOmit:
		return PolicyOmit, nil
	case PolicyCoerce:
		return PolicyCoerce, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// FromForm reads the offense fields of form under policy. No range checks
// are made; validation belongs to the backend.
func FromForm(form Form, policy Policy) OffenseQuery {
	stat := func(name string) Stat {
		raw := form.Get(name)
		if raw == "" && policy != PolicyCoerce {
			return Stat{}
		}
		return Num(ParseNumber(raw))
	}

	return OffenseQuery{
		PassingYardsPG:   stat(FieldPassingYardsPG),
		PassingTDsPG:     stat(FieldPassingTDsPG),
		IntsPG:           stat(FieldIntsPG),
		RushingYardsPG:   stat(FieldRushingYardsPG),
		RushingTDsPG:     stat(FieldRushingTDsPG),
		ReceivingYardsPG: stat(FieldReceivingYardsPG),
		K:                Num(neighborCount(form.Get(FieldK))),
	}
}

func neighborCount(raw string) float64 {
	if raw == "" {
		return DefaultK
	}
	k := ParseNumber(raw)
	if k == 0 || math.IsNaN(k) {
		return DefaultK
	}
	return k
}
