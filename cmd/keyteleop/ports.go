package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/keyteleop/pkg/link"
	"github.com/gwillem/keyteleop/pkg/robot"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	nameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

type PortsCommand struct{}

func (c *PortsCommand) Execute(args []string) error {
	ports, err := link.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		fmt.Println("Make sure the robot's controller is connected and powered on.")
		return nil
	}

	rows := make([][]string, 0, len(ports))
	for _, p := range ports {
		usb := "no"
		if p.USB {
			usb = "yes"
		}
		rows = append(rows, []string{p.Name, usb, p.VIDPID, p.Serial, p.Product})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Port", "USB", "VID:PID", "Serial", "Product").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 {
				return nameStyle
			}
			return cellStyle
		})

	fmt.Println(t.Render())
	fmt.Println()
	fmt.Println("Drive over serial with: " + titleStyle.Render("keyteleop drive --link serial --port <port>"))
	return nil
}

// selectPort asks which serial port carries the serial link. It runs
// before the terminal is switched to raw mode.
func selectPort() (string, error) {
	ports, err := link.ListPorts()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", fmt.Errorf("%w: no serial ports found, set --port", robot.ErrInvalidConfig)
	}
	if len(ports) == 1 {
		fmt.Println(successStyle.Render("Using " + ports[0].Name))
		return ports[0].Name, nil
	}

	options := make([]huh.Option[string], 0, len(ports))
	for _, p := range ports {
		label := p.Name
		if p.Product != "" {
			label += " (" + p.Product + ")"
		}
		options = append(options, huh.NewOption(label, p.Name))
	}

	var port string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which port is the robot on?").
				Options(options...).
				Value(&port),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", errors.New("no port selected")
		}
		return "", err
	}
	return port, nil
}
