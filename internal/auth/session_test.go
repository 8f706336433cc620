package auth

import "testing"

func TestResolveSessionRejectsUnknownToken(t *testing.T) {
	m := NewManager()
	if _, _, ok := m.ResolveSession("not-a-real-token"); ok {
		t.Fatalf("expected unknown token to be rejected")
	}
}

func TestResolveSessionRejectsEmptyToken(t *testing.T) {
	m := NewManager()
	if _, _, ok := m.ResolveSession(""); ok {
		t.Fatalf("expected empty token to be rejected")
	}
}

func TestValidateEmailRejectsMalformed(t *testing.T) {
	cases := []string{"", "not-an-email", "missing-domain@", "@missing-local.com"}
	for _, c := range cases {
		if err := validateEmail(c); err == nil {
			t.Errorf("expected %q to be rejected as invalid email", c)
		}
	}
}

func TestValidateUsernameRejectsTooShort(t *testing.T) {
	if err := validateUsername("ab"); err == nil {
		t.Fatalf("expected short username to be rejected")
	}
}

func TestValidatePasswordEnforcesMinimumLength(t *testing.T) {
	if err := validatePassword("1234"); err == nil {
		t.Fatalf("expected short password to be rejected")
	}
	if err := validatePassword("longenough"); err != nil {
		t.Fatalf("expected valid password to pass, got %v", err)
	}
}

func TestNormalizeLowercasesAndTrims(t *testing.T) {
	if got := normalize("  Alice@Example.COM "); got != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", got)
	}
}
