// Package keyteleop drives a mobile robot from the keyboard.
//
// Each keystroke sends a velocity command to the robot for a short dwell and
// is followed by a stop, so the robot never keeps moving once keys stop
// arriving. Commands travel over rosbridge (websocket) or a serial line.
//
// # Installation
//
//	go install github.com/gwillem/keyteleop/cmd/keyteleop@latest
//
// # Usage
//
// Optionally write a config file, then start driving:
//
//	keyteleop init
//	keyteleop drive --url ws://robot:9090
//
// Use W/S to go forward and back, A/D to turn, G to stop and Ctrl-C to quit.
// Pass --stamped (and optionally --frame-id) for robots that expect
// TwistStamped commands.
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/keyteleop: CLI with drive, ports and init commands
//   - pkg/teleop: Control loop, key mapping and move-then-stop pulses
//   - pkg/link: rosbridge and serial transports
//   - pkg/robot: Velocity messages and configuration
//   - pkg/terminal: Raw terminal mode and single-key reads
//   - pkg/logging: zerolog setup
package keyteleop
