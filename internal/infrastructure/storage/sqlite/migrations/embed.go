package migrations

import "embed"

// FS - миграции хранилища результатов симуляции.
//
//go:embed *.sql
var FS embed.FS
