package observability

import (
	"log/slog"
	"os"

	"github.com/fairyhunter13/mentor-match/internal/config"
)

// SetupLogger builds the process-wide JSON logger. The component name tells
// server and worker records apart when both streams land in one collector.
func SetupLogger(cfg config.Config, component string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.IsDev() {
		opts.Level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts)).With(
		slog.String("service", cfg.OTELServiceName),
		slog.String("component", component),
		slog.String("env", cfg.AppEnv),
	)
}
