package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Track  TrackCommand  `command:"track" description:"Drive the robot along a recorded path"`
	Record RecordCommand `command:"record" description:"Record a path while the robot is driven by hand"`
	Setup  SetupCommand  `command:"setup" description:"Write a configuration file interactively"`
	Runs   RunsCommand   `command:"runs" description:"List stored runs and plot them"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "pathtrack - pure pursuit path tracking for differential drive robots"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
