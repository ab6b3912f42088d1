package actions

import (
	"fourad-server/internal/engine"
	"fourad-server/internal/engine/handlers"
	"fourad-server/pkg/api"
)

func HandleAttack(ctx handlers.Context, p api.AttackPayload) (handlers.Result, error) {
	out, err := ctx.Encounter.Attack(p.HeroID, p.TargetID, engine.AttackOptions{
		Ranged:    p.Ranged,
		Subdual:   p.Subdual,
		DualWield: p.DualWield,
		Rage:      p.Rage,
	})
	if err != nil {
		return handlers.Result{}, err
	}
	return handlers.Result{Data: out}, nil
}

func HandleMonsterTurn(ctx handlers.Context, p api.MonsterTurnPayload) (handlers.Result, error) {
	out, err := ctx.Encounter.MonsterTurn(p.FrontEngaged)
	if err != nil {
		return handlers.Result{}, err
	}
	return handlers.Result{Data: out}, nil
}

func HandleCast(ctx handlers.Context, p api.CastPayload) (handlers.Result, error) {
	out, err := ctx.Encounter.Cast(engine.CastRequest{
		CasterID:     p.CasterID,
		Spell:        p.Spell,
		TargetIDs:    p.TargetIDs,
		AllyIDs:      p.AllyIDs,
		CastingBonus: p.CastingBonus,
	})
	if err != nil {
		return handlers.Result{}, err
	}
	return handlers.Result{Data: out}, nil
}

func HandleFlee(ctx handlers.Context) (handlers.Result, error) {
	out, err := ctx.Encounter.Flee()
	if err != nil {
		return handlers.Result{}, err
	}
	return handlers.Result{Data: out}, nil
}

func HandleWithdraw(ctx handlers.Context) (handlers.Result, error) {
	out, err := ctx.Encounter.Withdraw()
	if err != nil {
		return handlers.Result{}, err
	}
	return handlers.Result{Data: out}, nil
}

func HandleNewRound(ctx handlers.Context) (handlers.Result, error) {
	out, err := ctx.Encounter.NewRound()
	if err != nil {
		return handlers.Result{}, err
	}
	return handlers.Result{Data: out}, nil
}

// HandleTile - переход на новую плитку, враги из каталога.
func HandleTile(ctx handlers.Context) (handlers.Result, error) {
	out, err := ctx.Encounter.EnterTile(ctx.Catalog)
	if err != nil {
		return handlers.Result{}, err
	}
	return handlers.Result{Data: out}, nil
}

// HandleState ничего не меняет: снимок добавляет вызывающий.
func HandleState(ctx handlers.Context) (handlers.Result, error) {
	return handlers.EmptyResult(), nil
}
