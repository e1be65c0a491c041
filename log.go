package postcache

import "go.uber.org/zap"

// NewDevelopmentLogger returns a human-readable zap logger suitable for
// local runs against this package — a thin convenience wrapper so callers
// don't need to reach for zap directly just to get a Config.Logger.
func NewDevelopmentLogger() *zap.Logger {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
