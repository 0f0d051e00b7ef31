package entity

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestEnumValidity(t *testing.T) {
	for _, p := range Professions {
		if !p.Valid() {
			t.Fatalf("expected %s to be valid", p)
		}
	}
	if Profession("developer").Valid() {
		t.Fatalf("profession match must be exact")
	}
	if !TaskStatusInProgress.Valid() || TaskStatus("DOING").Valid() {
		t.Fatalf("unexpected status validity")
	}
	if !TaskPriorityHigh.Valid() || TaskPriority("URGENT").Valid() {
		t.Fatalf("unexpected priority validity")
	}
}

func TestPublicUserOmitsSecrets(t *testing.T) {
	tok := "digest"
	u := &User{ID: 7, Email: "a@x.com", Password: "$2a$hash", VerificationToken: &tok, ResetToken: &tok}
	b, err := json.Marshal(u.Public())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, leak := range []string{"$2a$hash", "digest", "password", "Token"} {
		if strings.Contains(s, leak) {
			t.Fatalf("public user leaks %q: %s", leak, s)
		}
	}
}
