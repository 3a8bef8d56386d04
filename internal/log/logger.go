package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var sugar *zap.SugaredLogger

// Init installs the process-global logger. With debug set it logs to the
// console with colored levels and millisecond timestamps; otherwise all
// logging is a no-op. Safe to call more than once.
func Init(debug bool) {
	l := zap.NewNop()

	if debug {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		cfg.DisableStacktrace = true

		built, err := cfg.Build()
		if err != nil {
			panic(err)
		}
		l = built
	}

	zap.ReplaceGlobals(l)
	sugar = l.Sugar()
}

// L returns the global sugared logger, installing the silent one on first use.
func L() *zap.SugaredLogger {
	if sugar == nil {
		Init(false)
	}
	return sugar
}
