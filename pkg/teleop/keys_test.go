package teleop

import "testing"

func TestMap(t *testing.T) {
	tests := []struct {
		key  Key
		turn float64
		want Intent
	}{
		{'w', 1.0, Intent{X: 1}},
		{'s', 1.0, Intent{X: -1}},
		{'a', 1.0, Intent{Yaw: 1}},
		{'d', 1.0, Intent{Yaw: -1}},
		{'a', 0.5, Intent{Yaw: 0.5}},
		{'d', 2.0, Intent{Yaw: -2}},
		{'g', 1.0, Intent{}},
		{'x', 1.0, Intent{}},
		{'W', 1.0, Intent{}}, // bindings are lower case only
		{KeyInterrupt, 1.0, Intent{}},
	}

	for _, tt := range tests {
		if got := Map(tt.key, tt.turn); got != tt.want {
			t.Errorf("Map(%q, %v) = %+v, want %+v", rune(tt.key), tt.turn, got, tt.want)
		}
	}
}

func TestMap_Total(t *testing.T) {
	bound := map[Key]bool{KeyForward: true, KeyBackward: true, KeyLeft: true, KeyRight: true}
	for b := 0; b < 256; b++ {
		k := Key(b)
		got := Map(k, 1.0)
		if !bound[k] && !got.IsZero() {
			t.Errorf("Map(%#x) = %+v, want zero intent", b, got)
		}
		if got.Y != 0 || got.Z != 0 {
			t.Errorf("Map(%#x) moves off the x axis: %+v", b, got)
		}
	}
}

func TestKey_Describe(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{'w', "going forward"},
		{'s', "going back"},
		{'a', "turning left"},
		{'d', "turning right"},
		{'g', "Stopping!"},
		{'q', ""},
		{KeyInterrupt, ""},
	}
	for _, tt := range tests {
		if got := tt.key.Describe(); got != tt.want {
			t.Errorf("Key(%q).Describe() = %q, want %q", rune(tt.key), got, tt.want)
		}
	}
}

func TestKey_IsInterrupt(t *testing.T) {
	if !Key(0x03).IsInterrupt() {
		t.Error("0x03 should interrupt")
	}
	if Key('q').IsInterrupt() {
		t.Error("q should not interrupt")
	}
}
