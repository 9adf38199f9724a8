// Package logger builds the process-wide zap logger.
package logger

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON production logger in gin release mode and a colored
// development logger otherwise. Output goes to the given sink ("stdout",
// "stderr" or a file path); the stdio tool server must pass "stderr" so log
// lines never interleave with protocol frames.
func New(mode, output string) (*zap.Logger, error) {
	if output == "" {
		output = "stdout"
	}

	var config zap.Config
	if mode == gin.ReleaseMode {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.OutputPaths = []string{output}
	config.ErrorOutputPaths = []string{"stderr"}

	return config.Build(zap.AddStacktrace(zap.DPanicLevel))
}
