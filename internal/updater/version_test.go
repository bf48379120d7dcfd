package updater

import (
	"testing"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected int
	}{
		{"older patch", "1.0.0", "1.0.1", -1},
		{"older minor", "1.0.0", "1.1.0", -1},
		{"older major", "1.0.0", "2.0.0", -1},
		{"equal", "1.2.3", "1.2.3", 0},
		{"newer", "1.1.0", "1.0.0", 1},
		{"numeric not lexicographic", "1.2", "1.10", -1},
		{"short form equals padded", "2.0", "2.0.0", 0},
		{"bare scalar", "3", "2.9.9", 1},
		{"identical unparsable", "a.b", "a.b", 0},
		{"different unparsable is older", "a", "b", -1},
		{"junk segments ignored", "2.x.1", "2.1", 0},
		{"longer wins", "1.2", "1.2.1", -1},
		{"empty vs version", "", "1.0", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompareVersions(tt.a, tt.b); got != tt.expected {
				t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestIsUpdateAvailable(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		latest   string
		expected bool
	}{
		{"update available", "1.0.0", "1.1.0", true},
		{"on latest", "1.1.0", "1.1.0", false},
		{"ahead of latest", "1.2.0", "1.1.0", false},
		{"unparsable remote prompts", "2.0", "beta", false},
		{"unparsable local prompts", "dev", "1.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUpdateAvailable(tt.current, tt.latest); got != tt.expected {
				t.Errorf("IsUpdateAvailable(%q, %q) = %v, want %v", tt.current, tt.latest, got, tt.expected)
			}
		})
	}
}
