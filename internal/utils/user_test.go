package utils

import "testing"

func TestGetUserLevel(t *testing.T) {
	cases := []struct {
		reputation int
		want       string
	}{
		{0, "Newcomer"},
		{10, "Newcomer"},
		{11, "Contributor"},
		{50, "Contributor"},
		{51, "Tinkerer"},
		{200, "Tinkerer"},
		{201, "Power User"},
		{999, "Power User"},
		{1000, "Legend"},
		{5000, "Legend"},
	}
	for _, c := range cases {
		name, icon := GetUserLevel(c.reputation)
		if name != c.want {
			t.Errorf("GetUserLevel(%d) = %q, want %q", c.reputation, name, c.want)
		}
		if icon == "" {
			t.Errorf("GetUserLevel(%d) returned empty icon", c.reputation)
		}
	}
}
