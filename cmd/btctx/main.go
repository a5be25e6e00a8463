// Command btctx builds, signs and decodes Bitcoin transactions offline.
package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

type globalOptions struct {
	Network    string `long:"network" description:"The Bitcoin network addresses are decoded for" choice:"mainnet" choice:"testnet" choice:"testnet3" choice:"regtest" choice:"signet"`
	DebugLevel string `long:"debuglevel" short:"d" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical, off}"`
}

const (
	defaultNetwork    = "mainnet"
	defaultDebugLevel = "info"
)

var opts = globalOptions{
	Network:    defaultNetwork,
	DebugLevel: defaultDebugLevel,
}

type subCommand interface {
	Register(parser *flags.Parser) error
}

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if err := setLogLevels(opts.DebugLevel); err != nil {
			return err
		}
		return cmd.Execute(args)
	}

	commands := []subCommand{
		newBuildCommand(),
		newDecodeCommand(),
	}
	for _, command := range commands {
		if err := command.Register(parser); err != nil {
			fmt.Fprintf(os.Stderr, "unable to register command: %v\n",
				err)
			os.Exit(1)
		}
	}

	if _, err := parser.Parse(); err != nil {
		flagErr, isFlagErr := err.(*flags.Error)
		if isFlagErr && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
