package models

import (
	"fmt"
	"strings"
)

type Phase string

const (
	PhaseOffense Phase = "offense"
	PhaseDefense Phase = "defense"
)

func (p Phase) Valid() bool {
	return p == PhaseOffense || p == PhaseDefense
}

// RoleID names one formation slot, e.g. "off_wr2".
type RoleID string

// Family is the role id without its numeric suffix: off_wr1 and off_wr2 are both "off_wr".
func (r RoleID) Family() string {
	return strings.TrimRight(string(r), "0123456789")
}

// Formation lists the roles of each phase in resolution order. Roles with
// tighter eligibility go first so generic roles don't drain the pool.
type Formation struct {
	Offense []RoleID
	Defense []RoleID
}

func DefaultFormation() Formation {
	return Formation{
		Offense: []RoleID{"off_qb", "off_c", "off_rb", "off_wr1", "off_wr2", "off_wr3", "off_te"},
		Defense: []RoleID{"def_rush", "def_mlb", "def_cb1", "def_cb2", "def_s1", "def_s2", "def_lb"},
	}
}

func (f Formation) Roles(phase Phase) []RoleID {
	switch phase {
	case PhaseOffense:
		return f.Offense
	case PhaseDefense:
		return f.Defense
	default:
		return nil
	}
}

// All returns offense roles followed by defense roles.
func (f Formation) All() []RoleID {
	all := make([]RoleID, 0, len(f.Offense)+len(f.Defense))
	all = append(all, f.Offense...)
	return append(all, f.Defense...)
}

func (f Formation) Has(role RoleID) bool {
	for _, r := range f.All() {
		if r == role {
			return true
		}
	}
	return false
}

func (f Formation) Validate() error {
	if len(f.Offense) == 0 || len(f.Defense) == 0 {
		return fmt.Errorf("formation needs offense and defense roles")
	}
	seen := make(map[RoleID]bool)
	for _, r := range f.All() {
		if strings.TrimSpace(string(r)) == "" {
			return fmt.Errorf("formation has an empty role id")
		}
		if seen[r] {
			return fmt.Errorf("duplicate role %q in formation", r)
		}
		seen[r] = true
	}
	return nil
}
