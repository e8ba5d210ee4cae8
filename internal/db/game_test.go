package db

import "testing"

func TestValidStatus(t *testing.T) {
	for _, status := range []string{StatusProposed, StatusVoting, StatusBacklog, StatusPlaying, StatusCompleted} {
		if !ValidStatus(status) {
			t.Fatalf("%q must be valid", status)
		}
	}
	for _, status := range []string{"", "archived", "Proposed", "done"} {
		if ValidStatus(status) {
			t.Fatalf("%q must be invalid", status)
		}
	}
}
