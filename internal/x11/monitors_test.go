package x11

import "testing"

func TestMonitorContaining(t *testing.T) {
	monitors := []Monitor{
		{ID: 0, Name: "eDP-1", X: 0, Y: 0, Width: 1920, Height: 1080},
		{ID: 1, Name: "HDMI-1", X: 1920, Y: 0, Width: 2560, Height: 1440},
	}

	tests := []struct {
		name   string
		x, y   int
		wantID int
		wantOK bool
	}{
		{name: "first", x: 10, y: 10, wantID: 0, wantOK: true},
		{name: "right edge is exclusive", x: 1920, y: 5, wantID: 1, wantOK: true},
		{name: "below first falls back", x: 100, y: 1200, wantID: 0, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := MonitorContaining(monitors, tt.x, tt.y)
			if m.ID != tt.wantID || ok != tt.wantOK {
				t.Fatalf("MonitorContaining(%d, %d) = %d, %v; want %d, %v", tt.x, tt.y, m.ID, ok, tt.wantID, tt.wantOK)
			}
		})
	}

	if _, ok := MonitorContaining(nil, 0, 0); ok {
		t.Fatalf("empty monitor list reported a match")
	}
}
