package db

import (
	"fmt"
	"log/slog"
)

// gormSlogWriter routes gorm's slow query and error lines into slog.
type gormSlogWriter struct{}

func (gormSlogWriter) Printf(format string, args ...any) {
	slog.Default().Warn("gorm query",
		"event", "db_gorm_query",
		"module", "internal/platform/db",
		"layer", "platform",
		"detail", fmt.Sprintf(format, args...),
	)
}
