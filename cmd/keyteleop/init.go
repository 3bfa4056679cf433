package main

import (
	"fmt"

	"github.com/gwillem/keyteleop/pkg/robot"
)

type InitCommand struct {
	Force bool `long:"force" short:"f" description:"Overwrite an existing keyteleop.toml"`
}

func (c *InitCommand) Execute(args []string) error {
	if robot.ConfigExists() && !c.Force {
		return fmt.Errorf("%s already exists, use --force to overwrite", robot.DefaultConfigFile)
	}

	cfg := robot.DefaultConfig()
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println(successStyle.Render("Configuration written to " + robot.DefaultConfigFile))
	fmt.Println("Start driving with: " + titleStyle.Render("keyteleop drive"))
	return nil
}
