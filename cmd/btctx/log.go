package main

import (
	"fmt"
	"os"

	"btctx.mleku.dev/coinselect"
	"btctx.mleku.dev/signer"
	"btctx.mleku.dev/txbuilder"
	"github.com/btcsuite/btclog"
)

// Loggers per subsystem. A single backend writing to stderr feeds all of
// them so stdout carries only command output.
var (
	backendLog = btclog.NewBackend(os.Stderr)

	mainLog = backendLog.Logger("BTCX")
	cselLog = backendLog.Logger("CSEL")
	sgnrLog = backendLog.Logger("SGNR")
	txbdLog = backendLog.Logger("TXBD")

	subsystemLoggers = map[string]btclog.Logger{
		"BTCX": mainLog,
		"CSEL": cselLog,
		"SGNR": sgnrLog,
		"TXBD": txbdLog,
	}
)

func init() {
	coinselect.UseLogger(cselLog)
	signer.UseLogger(sgnrLog)
	txbuilder.UseLogger(txbdLog)
}

// setLogLevels sets every subsystem logger to the named level.
func setLogLevels(levelStr string) error {
	level, ok := btclog.LevelFromString(levelStr)
	if !ok {
		return fmt.Errorf("invalid debug level %q", levelStr)
	}
	for _, logger := range subsystemLoggers {
		logger.SetLevel(level)
	}
	return nil
}
