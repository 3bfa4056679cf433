package main

import (
	"errors"
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Drive DriveCommand `command:"drive" alias:"teleop" description:"Drive the robot with W/A/S/D/G (Ctrl-C quits)"`
	Ports PortsCommand `command:"ports" description:"List serial ports usable by the serial link"`
	Init  InitCommand  `command:"init" description:"Write a default keyteleop.toml"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run parses args, executes the selected command and returns the process
// exit code. go-flags prints help and errors itself.
func run(args []string) int {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Name = "keyteleop"
	parser.LongDescription = "keyteleop - keyboard teleoperation for mobile robots"

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return 0
		}
		return 1
	}
	return 0
}
