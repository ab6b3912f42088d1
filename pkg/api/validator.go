package api

import (
	"errors"
	"fmt"
)

// Validator - интерфейс, который могут реализовать DTO
type Validator interface {
	Validate() error
}

func (p StartPayload) Validate() error {
	switch p.Location {
	case "", "room", "corridor":
	default:
		return fmt.Errorf("unknown location %q", p.Location)
	}
	switch p.Width {
	case "", "normal", "narrow":
	default:
		return fmt.Errorf("unknown width %q", p.Width)
	}
	if p.Ambush && p.Location != "corridor" {
		return errors.New("ambush is only possible in a corridor")
	}
	for _, m := range p.Monsters {
		if m.Template == "" {
			return errors.New("monster template is required")
		}
		if m.Count < 0 {
			return errors.New("monster count cannot be negative")
		}
	}
	return nil
}

func (p AttackPayload) Validate() error {
	if p.HeroID == "" {
		return errors.New("heroId is required")
	}
	if p.TargetID == "" {
		return errors.New("targetId is required")
	}
	return nil
}

func (p CastPayload) Validate() error {
	if p.CasterID == "" {
		return errors.New("casterId is required")
	}
	if p.Spell == "" {
		return errors.New("spell is required")
	}
	return nil
}
