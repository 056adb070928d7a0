package auth

import (
	"testing"
	"time"

	"github.com/CS3219-AY2526S2/peerprep-g15/internal/model"
)

const (
	testAccessSecret  = "access-secret-at-least-16-chars"
	testRefreshSecret = "refresh-secret-at-least-16-chars"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(testAccessSecret, testRefreshSecret, 15*time.Minute, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func TestNewTokenService_Validation(t *testing.T) {
	tests := []struct {
		name           string
		access         string
		refresh        string
		accessTTL      time.Duration
		refreshTTL     time.Duration
		wantErr        bool
	}{
		{"valid", testAccessSecret, testRefreshSecret, time.Minute, time.Hour, false},
		{"short access secret", "short", testRefreshSecret, time.Minute, time.Hour, true},
		{"short refresh secret", testAccessSecret, "short", time.Minute, time.Hour, true},
		{"identical secrets", testAccessSecret, testAccessSecret, time.Minute, time.Hour, true},
		{"zero access TTL", testAccessSecret, testRefreshSecret, 0, time.Hour, true},
		{"negative refresh TTL", testAccessSecret, testRefreshSecret, time.Minute, -time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenService(tt.access, tt.refresh, tt.accessTTL, tt.refreshTTL)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewTokenService() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.IssueAccess("user-123", model.RoleUser)
	if err != nil {
		t.Fatalf("IssueAccess() error = %v", err)
	}

	id, err := ts.Verify(token, KindAccess)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id.UserID != "user-123" {
		t.Errorf("UserID = %q, want %q", id.UserID, "user-123")
	}
	if id.Role != model.RoleUser {
		t.Errorf("Role = %q, want %q", id.Role, model.RoleUser)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.IssueRefresh("user-456", model.RoleAdmin)
	if err != nil {
		t.Fatalf("IssueRefresh() error = %v", err)
	}

	id, err := ts.Verify(token, KindRefresh)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id.UserID != "user-456" || id.Role != model.RoleAdmin {
		t.Errorf("identity = %+v, want user-456/admin", id)
	}
}

func TestKindMismatchRejected(t *testing.T) {
	ts := newTestTokenService(t)

	access, err := ts.IssueAccess("user-1", model.RoleUser)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	refresh, err := ts.IssueRefresh("user-1", model.RoleUser)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	// A validly signed, unexpired access token must not pass where a
	// refresh token is expected, and vice versa.
	if _, err := ts.Verify(access, KindRefresh); err == nil {
		t.Error("access token accepted as refresh token")
	}
	if _, err := ts.Verify(refresh, KindAccess); err == nil {
		t.Error("refresh token accepted as access token")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	ts, err := NewTokenService(testAccessSecret, testRefreshSecret, time.Millisecond, time.Millisecond)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, err := ts.IssueAccess("user-1", model.RoleUser)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	if _, err := ts.Verify(token, KindAccess); err == nil {
		t.Error("expired token should be rejected")
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	ts := newTestTokenService(t)

	// Sign with a different access secret — same length, different bytes.
	other, err := NewTokenService("other-access-secret-16-chars!!!", testRefreshSecret+"x", 15*time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	forged, err := other.IssueAccess("user-1", model.RoleUser)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	if _, err := ts.Verify(forged, KindAccess); err == nil {
		t.Error("token signed with a different secret should be rejected")
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	ts := newTestTokenService(t)

	for _, garbage := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := ts.Verify(garbage, KindAccess); err == nil {
			t.Errorf("Verify(%q) should fail", garbage)
		}
	}
}

func TestRefreshTokensAreUnique(t *testing.T) {
	ts := newTestTokenService(t)

	// Two tokens for the same subject in the same instant must differ —
	// rotation relies on the superseded token hashing differently.
	t1, err := ts.IssueRefresh("user-1", model.RoleUser)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	t2, err := ts.IssueRefresh("user-1", model.RoleUser)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	if t1 == t2 {
		t.Error("two refresh tokens for the same subject should never be identical")
	}
}
