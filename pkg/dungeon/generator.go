package dungeon

import (
	"fmt"

	"fourad-server/internal/domain"
	"fourad-server/pkg/dice"
	"fourad-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// Contents - результат таблицы содержимого (2d6).
type Contents string

const (
	ContentsEmpty    Contents = "empty"
	ContentsVermin   Contents = "vermin"
	ContentsMinions  Contents = "minions"
	ContentsTreasure Contents = "treasure"
	ContentsTrap     Contents = "trap"
	ContentsSpecial  Contents = "special_feature"
	ContentsWeird    Contents = "weird_monster"
	ContentsBoss     Contents = "boss"
)

// Индекс - сумма 2d6.
var contentsTable = [13]Contents{
	2:  ContentsTreasure,
	3:  ContentsTrap,
	4:  ContentsSpecial,
	5:  ContentsEmpty,
	6:  ContentsVermin,
	7:  ContentsMinions,
	8:  ContentsMinions,
	9:  ContentsEmpty,
	10: ContentsWeird,
	11: ContentsBoss,
	12: ContentsBoss,
}

// TreasureExpr - золото на плитке с сокровищем.
const TreasureExpr = "2d6"

type shapeRow struct {
	Type  domain.LocationType
	Width domain.LocationWidth
	Doors int
}

// Десятки d66 выбирают строку; единица 6 добавляет дверь.
var shapeTable = [6]shapeRow{
	{domain.LocationRoom, domain.WidthNormal, 1},
	{domain.LocationRoom, domain.WidthNormal, 2},
	{domain.LocationCorridor, domain.WidthNormal, 1},
	{domain.LocationCorridor, domain.WidthNarrow, 1},
	{domain.LocationRoom, domain.WidthNormal, 3},
	{domain.LocationCorridor, domain.WidthNormal, 2},
}

// Shape - форма плитки.
type Shape struct {
	Roll     int                   `json:"roll"`
	Location domain.CombatLocation `json:"location"`
	Doors    int                   `json:"doors"`
}

// ShapeFor переводит результат d66 (11..66) в форму плитки.
func ShapeFor(roll int) Shape {
	tens, ones := roll/10, roll%10
	if tens < 1 {
		tens = 1
	}
	if tens > 6 {
		tens = 6
	}
	row := shapeTable[tens-1]
	doors := row.Doors
	if ones == 6 {
		doors++
	}
	return Shape{
		Roll:     roll,
		Location: domain.CombatLocation{Type: row.Type, Width: row.Width},
		Doors:    doors,
	}
}

// Tile - сгенерированная плитка подземелья.
type Tile struct {
	Shape        Shape            `json:"shape"`
	ContentsRoll int              `json:"contentsRoll"`
	Contents     Contents         `json:"contents"`
	Monsters     []domain.Monster `json:"monsters,omitempty"`
	Trap         *Trap            `json:"trap,omitempty"`
	Feature      string           `json:"feature,omitempty"`
	Gold         int              `json:"gold,omitempty"`
}

// HasDoor - через плитку можно отступить с закрытием двери.
func (t Tile) HasDoor() bool {
	return t.Shape.Doors > 0
}

// GenerateTile бросает форму (d66) и содержимое (2d6) новой плитки.
// Враги создаются из шаблонов src. Все броски идут через r и попадают в журнал.
func GenerateTile(r *dice.Roller, src TemplateSource) (Tile, error) {
	// 1. Форма
	tile := Tile{Shape: ShapeFor(r.D66("tile:shape"))}

	// 2. Содержимое. В коридорах нет сокровищ и особых мест.
	tile.ContentsRoll = r.TwoD6("tile:contents")
	tile.Contents = contentsTable[tile.ContentsRoll]
	if tile.Shape.Location.IsCorridor() && (tile.Contents == ContentsTreasure || tile.Contents == ContentsSpecial) {
		tile.Contents = ContentsEmpty
	}

	// 3. Наполнение
	switch tile.Contents {
	case ContentsVermin, ContentsMinions, ContentsWeird, ContentsBoss:
		tmpl, err := pickTemplate(r, src, roleFor(tile.Contents))
		if err != nil {
			return Tile{}, fmt.Errorf("tile contents %s: %w", tile.Contents, err)
		}
		m, err := tmpl.Spawn(r)
		if err != nil {
			return Tile{}, err
		}
		tile.Monsters = append(tile.Monsters, m)

	case ContentsTreasure:
		rec, err := r.Expr("tile:gold", TreasureExpr)
		if err != nil {
			return Tile{}, err
		}
		tile.Gold = rec.Total

	case ContentsTrap:
		trap := trapTable[r.D6("tile:trap")-1]
		tile.Trap = &trap

	case ContentsSpecial:
		tile.Feature = featureTable[r.D6("tile:feature")-1]
	}

	logger.Component("dungeon").WithFields(logrus.Fields{
		"shape":    tile.Shape.Roll,
		"location": tile.Shape.Location.Type,
		"contents": tile.Contents,
		"monsters": len(tile.Monsters),
	}).Debug("Tile generated.")

	return tile, nil
}

func roleFor(c Contents) Role {
	switch c {
	case ContentsVermin:
		return RoleVermin
	case ContentsMinions:
		return RoleMinion
	case ContentsWeird:
		return RoleWeird
	default:
		return RoleBoss
	}
}
