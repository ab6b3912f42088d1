package engine

import (
	"fmt"
	"time"

	"fourad-server/internal/domain"

	"github.com/caarlos0/env/v11"
)

// Config хранит параметры встречи
type Config struct {
	// Seed - зерно генератора встречи. 0 - взять из времени.
	Seed uint32 `env:"ENCOUNTER_SEED" envDefault:"0"`

	// ClassPriority - порядок выбора целей при равном HP. Пусто - порядок по умолчанию.
	ClassPriority []string `env:"ENCOUNTER_CLASS_PRIORITY" envSeparator:","`

	// AutoRerolls - тратить Удачу и Благословения на проваленный спасбросок автоматически.
	AutoRerolls bool `env:"ENCOUNTER_AUTO_REROLLS" envDefault:"true"`
}

// NewConfig создает конфиг по умолчанию (случайный сид)
func NewConfig() Config {
	return Config{
		Seed:        timeSeed(),
		AutoRerolls: true,
	}
}

// LoadConfig читает конфиг из окружения.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse engine config: %w", err)
	}
	if cfg.Seed == 0 {
		cfg.Seed = timeSeed()
	}
	for _, c := range cfg.ClassPriority {
		if !domain.ClassKey(c).Valid() {
			return Config{}, fmt.Errorf("parse engine config: unknown class %q in ENCOUNTER_CLASS_PRIORITY", c)
		}
	}
	return cfg, nil
}

// Priority возвращает порядок классов для выбора целей.
func (c Config) Priority() []domain.ClassKey {
	if len(c.ClassPriority) == 0 {
		return domain.DefaultClassPriority
	}
	out := make([]domain.ClassKey, len(c.ClassPriority))
	for i, k := range c.ClassPriority {
		out[i] = domain.ClassKey(k)
	}
	return out
}

func timeSeed() uint32 {
	s := uint32(time.Now().UnixNano())
	if s == 0 {
		s = 1
	}
	return s
}
