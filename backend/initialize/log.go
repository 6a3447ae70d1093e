package initialize

import (
	"io"
	"os"
	"time"

	"fota-manager/backend/global"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	// basic zerolog setup: console writer to stdout
	SetupLogger(os.Stdout, zerolog.InfoLevel)
}

// SetupLogger points global.Logger at a console writer on out.
func SetupLogger(out io.Writer, level zerolog.Level) {
	cw := zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime}
	global.Logger = log.Output(cw).Level(level)
}
