// Package robot provides the velocity message types sent to a mobile base
// and the configuration of a teleoperation session.
package robot

import "time"

// Message type names as advertised to ROS.
const (
	TwistType        = "geometry_msgs/msg/Twist"
	TwistStampedType = "geometry_msgs/msg/TwistStamped"
)

// Vector3 mirrors geometry_msgs/Vector3.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Twist mirrors geometry_msgs/Twist: linear velocity in m/s and angular
// velocity in rad/s.
type Twist struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

// IsZero reports whether every component of the twist is zero.
func (t Twist) IsZero() bool {
	return t == Twist{}
}

// Time mirrors builtin_interfaces/Time.
type Time struct {
	Sec     int32  `json:"sec"`
	Nanosec uint32 `json:"nanosec"`
}

// NewTime converts a wall clock time to a ROS time stamp.
func NewTime(t time.Time) Time {
	return Time{
		Sec:     int32(t.Unix()),
		Nanosec: uint32(t.Nanosecond()),
	}
}

// Header mirrors std_msgs/Header.
type Header struct {
	Stamp   Time   `json:"stamp"`
	FrameID string `json:"frame_id"`
}

// TwistStamped mirrors geometry_msgs/TwistStamped.
type TwistStamped struct {
	Header Header `json:"header"`
	Twist  Twist  `json:"twist"`
}
