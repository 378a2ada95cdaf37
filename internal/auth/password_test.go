package auth

import "testing"

func TestCredentialMatch(t *testing.T) {
	cred, err := NewCredential("opensesame")
	if err != nil {
		t.Fatalf("new credential failed: %v", err)
	}

	if !cred.Match("opensesame") {
		t.Fatalf("expected matching password to pass")
	}
	if cred.Match("wrong") {
		t.Fatalf("expected wrong password to fail")
	}
	if cred.Match("") {
		t.Fatalf("expected empty password to fail")
	}
}
