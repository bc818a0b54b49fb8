package logger

import (
	"go.uber.org/zap"
)

var log = zap.NewNop()

// Init inicializa el logger global. level acepta los niveles de zap ("debug", "info",
// ...) y encoding "json" o "console".
func Init(level, encoding string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.Encoding = encoding          // json en producción, console en local
	cfg.EncoderConfig.TimeKey = "ts" // timestamp
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.CallerKey = "caller"

	built, err := cfg.Build()
	if err != nil {
		return err
	}
	log = built
	return nil
}

// Sugar retorna un logger más “friendly” para usar con printf-like
func Sugar() *zap.SugaredLogger {
	return log.Sugar()
}

// Logger retorna el logger estructurado
func Logger() *zap.Logger {
	return log
}
