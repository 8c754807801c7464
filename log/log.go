// default logger
package log

import (
	"os"

	"go.uber.org/zap"
)

func init() {
	// call InitLog outside if need change cfg
	if os.Getenv("BULLBEAR_ENV") == "prod" {
		InitLog(DefaultProdCfg())
	} else {
		InitLog(DefaultDebugCfg())
	}
}

var L *zap.Logger

func InitLog(cfg zap.Config) {
	var err error
	if L, err = cfg.Build(); err != nil {
		panic(err)
	}
}

func DefaultDebugCfg() zap.Config {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)

	return cfg
}

func DefaultProdCfg() zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)

	return cfg
}
