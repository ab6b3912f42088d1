package logger

import (
	"io"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Log является глобальным экземпляром логгера для всего приложения.
var Log *logrus.Logger

// Options - параметры логгера. Заполняются из окружения.
type Options struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// Init инициализирует глобальный логгер из переменных окружения.
// Эта функция должна быть вызвана один раз при старте приложения в main.go.
func Init() {
	var opts Options
	if err := env.Parse(&opts); err != nil {
		opts = Options{Level: "info", Format: "text"}
	}
	Configure(opts, os.Stdout)
}

// Configure собирает логгер по явным параметрам (используется в cmd и тестах).
func Configure(opts Options, out io.Writer) {
	Log = logrus.New()

	// 1. Уровень. По умолчанию - "info". Для отладки можно выставить "debug".
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	// 2. Форматтер.
	// "json" - для продакшена и сбора логов.
	// "text" - для удобной разработки.
	if strings.ToLower(opts.Format) == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	// 3. Куда писать логи.
	Log.SetOutput(out)
}

// Component возвращает entry с полем component.
// Если Init еще не вызывали, логгер создается с настройками по умолчанию.
func Component(name string) *logrus.Entry {
	if Log == nil {
		Configure(Options{Level: "info", Format: "text"}, os.Stdout)
	}
	return Log.WithField("component", name)
}
