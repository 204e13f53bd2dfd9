package utils

import (
	"testing"
	"time"
)

func TestStateVariants(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"Texas", []string{"Texas", "TX"}},
		{"tx", []string{"tx", "texas"}},
		{"New York", []string{"New York", "NY"}},
		{"  California  ", []string{"California", "CA"}},
		{"Narnia", []string{"Narnia"}},
		{"", nil},
	}
	for _, tc := range cases {
		got := StateVariants(tc.in)
		if len(got) != len(tc.want) {
			t.Fatalf("StateVariants(%q) = %v, want %v", tc.in, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("StateVariants(%q) = %v, want %v", tc.in, got, tc.want)
			}
		}
	}
}

func TestNewAuthTokenShapeAndUniqueness(t *testing.T) {
	a := NewAuthToken("admin_user", "secret")
	if len(a) != 64 {
		t.Fatalf("token length = %d, want 64 hex chars", len(a))
	}
	time.Sleep(time.Microsecond)
	b := NewAuthToken("admin_user", "secret")
	if a == b {
		t.Fatal("consecutive tokens for the same identity collided")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	val, err := NewSessionValue("s3cret", "curator_user", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionValue: %v", err)
	}
	role, err := ParseSessionValue("s3cret", val)
	if err != nil {
		t.Fatalf("ParseSessionValue: %v", err)
	}
	if role != "curator_user" {
		t.Fatalf("role = %q, want curator_user", role)
	}
}

func TestSessionRejectsWrongSecret(t *testing.T) {
	val, err := NewSessionValue("s3cret", "admin_user", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionValue: %v", err)
	}
	if _, err := ParseSessionValue("other", val); err == nil {
		t.Fatal("session signed with a different secret was accepted")
	}
}

func TestSessionRejectsExpired(t *testing.T) {
	val, err := NewSessionValue("s3cret", "admin_user", -time.Minute)
	if err != nil {
		t.Fatalf("NewSessionValue: %v", err)
	}
	if _, err := ParseSessionValue("s3cret", val); err == nil {
		t.Fatal("expired session was accepted")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword(hash, "hunter22") {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword(hash, "hunter23") {
		t.Fatal("wrong password accepted")
	}
}
