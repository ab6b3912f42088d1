package systems

import (
	"fmt"

	"fourad-server/internal/domain"
	"fourad-server/pkg/dice"
	"fourad-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// DefaultSaveDC - порог для источников без явного DC.
const DefaultSaveDC = 4

// DamageSource описывает, что довело героя до 0 HP.
type DamageSource struct {
	Kind     SourceKind `json:"kind"`
	FoeLevel int        `json:"foeLevel,omitempty"`
	DC       int        `json:"dc,omitempty"`
}

// SaveThreshold - порог спасброска для источника.
func SaveThreshold(src DamageSource) int {
	switch src.Kind {
	case SourceMonster:
		return max(1, 7-domain.ClampLevel(src.FoeLevel))
	case SourceTrap:
		if src.DC > 0 {
			return src.DC
		}
		return DefaultSaveDC
	default:
		if src.DC > 0 {
			return src.DC
		}
		return DefaultSaveDC
	}
}

// SaveRequest - вход спасброска.
type SaveRequest struct {
	Hero         *domain.Hero
	Party        []*domain.Hero // Для поиска жреца с благословением
	Source       DamageSource
	Ctx          CombatContext
	Traits       TraitTable
	AllowRerolls bool // Тратить Удачу полурослика и Благословение жреца на повтор
}

// SaveAttempt - одна попытка.
type SaveAttempt struct {
	Roll      int            `json:"roll"`
	Total     int            `json:"total"`
	Breakdown Breakdown      `json:"breakdown"`
	Via       domain.Ability `json:"via,omitempty"`       // Чем оплачен повтор
	GrantedBy string         `json:"grantedBy,omitempty"` // Кто потратил заряд
	Success   bool           `json:"success"`
}

// SaveResult - итог спасброска.
type SaveResult struct {
	HeroID    string         `json:"heroId"`
	Threshold int            `json:"threshold"`
	Attempts  []SaveAttempt  `json:"attempts"`
	Success   bool           `json:"success"`
	Events    []domain.Event `json:"-"`
	Message   string         `json:"message"`
}

// ResolveSave - спасбросок от смерти: d6 + модификаторы >= порога.
// Успех: 1 HP и ранение. Провал: 0 HP и смерть.
func ResolveSave(r *dice.Roller, req SaveRequest) SaveResult {
	// Частная копия: заряды и благословение тратятся по ходу попыток
	hero := req.Hero.Clone()
	ctx := req.Ctx
	ctx.SaveSource = req.Source.Kind

	res := SaveResult{
		HeroID:    hero.ID,
		Threshold: SaveThreshold(req.Source),
	}
	blessingsSpent := make(map[string]int)

	saveLogger := logger.Component("save_system").WithFields(logrus.Fields{
		"hero_id":   hero.ID,
		"threshold": res.Threshold,
	})

	var via domain.Ability
	var grantedBy string
	for {
		// 1. Бросок
		bd := ResolveModifiers(RollSave, hero, ctx, req.Traits)
		roll := r.D6("save:" + hero.ID)
		attempt := SaveAttempt{
			Roll:      roll,
			Total:     roll + bd.Total,
			Breakdown: bd,
			Via:       via,
			GrantedBy: grantedBy,
		}
		attempt.Success = attempt.Total >= res.Threshold
		res.Attempts = append(res.Attempts, attempt)

		if ev := blessingConsumed(hero, bd); ev != nil {
			res.Events = append(res.Events, ev...)
			hero.Status.Blessed = false
			ctx.Blessed = false
		}

		if attempt.Success {
			res.Success = true
			break
		}
		if !req.AllowRerolls {
			break
		}

		// 2. Повтор: сначала своя Удача, затем Благословение любого жреца
		if hero.LuckCharges() > 0 {
			hero.Usage.LuckUsed++
			via, grantedBy = domain.AbilityLuck, hero.ID
			res.Events = append(res.Events, domain.ChargeSpent{HeroID: hero.ID, Ability: domain.AbilityLuck})
			continue
		}
		if cleric := blessingDonor(req.Party, hero, blessingsSpent); cleric != nil {
			if cleric.ID == hero.ID {
				hero.Usage.BlessingsUsed++
			} else {
				blessingsSpent[cleric.ID]++
			}
			via, grantedBy = domain.AbilityBlessing, cleric.ID
			res.Events = append(res.Events, domain.ChargeSpent{HeroID: cleric.ID, Ability: domain.AbilityBlessing})
			continue
		}
		break
	}

	// 3. Исход
	if res.Success {
		res.Events = append(res.Events,
			domain.HeroHPChanged{HeroID: hero.ID, From: req.Hero.HP, To: 1},
			domain.HeroStatusSet{HeroID: hero.ID, Flag: domain.FlagWounded},
		)
		res.Message = fmt.Sprintf("%s выживает с 1 HP, но ранен.", hero.Name)
	} else {
		res.Events = append(res.Events,
			domain.HeroHPChanged{HeroID: hero.ID, From: req.Hero.HP, To: 0},
			domain.HeroStatusSet{HeroID: hero.ID, Flag: domain.FlagDead},
		)
		res.Message = fmt.Sprintf("%s погибает.", hero.Name)
	}

	saveLogger.WithFields(logrus.Fields{
		"attempts": len(res.Attempts),
		"success":  res.Success,
	}).Info("Save resolved.")

	return res
}

// blessingDonor - живой жрец с неизрасходованным благословением.
func blessingDonor(party []*domain.Hero, self *domain.Hero, spent map[string]int) *domain.Hero {
	// Жрец при смерти может благословить себя; свои заряды учтены в копии
	if self.BlessingCharges() > 0 {
		return self
	}
	for _, h := range party {
		if h == nil || h.ID == self.ID || h.Class != domain.ClassCleric || !h.IsAlive() {
			continue
		}
		if h.BlessingCharges()-spent[h.ID] > 0 {
			return h
		}
	}
	return nil
}
