package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"authcore/internal/apperr"
	"authcore/internal/auth"
	"authcore/internal/models"
	"authcore/internal/service"
	"authcore/internal/store/storetest"
)

type accountFixture struct {
	accounts *service.AccountService
	users    *storetest.MemoryUsers
	sessions *storetest.MemorySessions
	audit    *storetest.MemoryAudit
	issuer   *auth.Issuer
	guard    *auth.Guard
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	users := storetest.NewMemoryUsers()
	sessions := storetest.NewMemorySessions()
	audit := storetest.NewMemoryAudit()
	issuer := auth.NewIssuer("test-secret", 30*time.Minute)
	lg := zap.NewNop().Sugar()
	return &accountFixture{
		accounts: service.NewAccountService(users, sessions, audit, issuer, lg),
		users:    users,
		sessions: sessions,
		audit:    audit,
		issuer:   issuer,
		guard:    auth.NewGuard(issuer, users, sessions),
	}
}

func mustRegister(t *testing.T, f *accountFixture, name, email string) *models.User {
	t.Helper()
	u, err := f.accounts.Register(context.Background(), service.RegisterInput{
		Name: name, Email: email, Mobile: "12345678", Password: "Sw0rd!abc",
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u
}

func mustCreateAdmin(t *testing.T, f *accountFixture, email string) *models.User {
	t.Helper()
	hash, _ := auth.HashPassword("Sw0rd!abc")
	u := &models.User{
		Name: "Admin", Email: email, Mobile: "12345678",
		Role: models.RoleAdmin, PasswordHash: hash,
		Status: models.StatusActive, IsEmailVerified: true,
	}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return u
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAccountFixture(t)
	mustRegister(t, f, "Alice", "alice@x.com")

	_, err := f.accounts.Register(context.Background(), service.RegisterInput{
		Name: "Other Alice", Email: "ALICE@x.com", Mobile: "87654321", Password: "Sw0rd!abc",
	})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("want Conflict for duplicate email, got %v", err)
	}
}

func TestRegisterConcurrentSameEmail(t *testing.T) {
	f := newAccountFixture(t)
	const n = 16
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.accounts.Register(context.Background(), service.RegisterInput{
				Name: "Alice", Email: "alice@x.com", Mobile: "12345678", Password: "Sw0rd!abc",
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)
	success := 0
	for err := range results {
		if err == nil {
			success++
		} else if apperr.KindOf(err) != apperr.KindConflict {
			t.Fatalf("unexpected error kind: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("want exactly one successful registration, got %d", success)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newAccountFixture(t)
	cases := []struct {
		name string
		in   service.RegisterInput
	}{
		{"short name", service.RegisterInput{Name: "A", Email: "a@x.com", Mobile: "12345678", Password: "Sw0rd!abc"}},
		{"bad email", service.RegisterInput{Name: "Alice", Email: "not-an-email", Mobile: "12345678", Password: "Sw0rd!abc"}},
		{"short mobile", service.RegisterInput{Name: "Alice", Email: "a@x.com", Mobile: "123", Password: "Sw0rd!abc"}},
		{"weak password", service.RegisterInput{Name: "Alice", Email: "a@x.com", Mobile: "12345678", Password: "abcdef1!"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.accounts.Register(context.Background(), tc.in)
			if apperr.KindOf(err) != apperr.KindInvalidInput {
				t.Fatalf("want InvalidInput, got %v", err)
			}
		})
	}
}

func TestAuthenticateIndistinguishableFailures(t *testing.T) {
	f := newAccountFixture(t)
	mustRegister(t, f, "Alice", "alice@x.com")

	_, errUnknown := f.accounts.Authenticate(context.Background(), "nobody@x.com", "Sw0rd!abc")
	_, errWrongPw := f.accounts.Authenticate(context.Background(), "alice@x.com", "Wr0ng!abc")

	if apperr.KindOf(errUnknown) != apperr.KindUnauthenticated {
		t.Fatalf("unknown email: want Unauthenticated, got %v", errUnknown)
	}
	if apperr.KindOf(errWrongPw) != apperr.KindUnauthenticated {
		t.Fatalf("wrong password: want Unauthenticated, got %v", errWrongPw)
	}
	if apperr.PublicMessage(errUnknown) != apperr.PublicMessage(errWrongPw) {
		t.Fatalf("failure messages must match: %q vs %q",
			apperr.PublicMessage(errUnknown), apperr.PublicMessage(errWrongPw))
	}
}

func TestAuthenticateBlockedSurfacesStatus(t *testing.T) {
	f := newAccountFixture(t)
	admin := mustCreateAdmin(t, f, "admin@x.com")
	alice := mustRegister(t, f, "Alice", "alice@x.com")

	reason := "test"
	if _, err := f.accounts.ChangeStatus(context.Background(), admin, alice.ID, models.StatusBlocked, &reason); err != nil {
		t.Fatalf("block: %v", err)
	}

	// Correct password, so the status detail may be surfaced.
	_, err := f.accounts.Authenticate(context.Background(), "alice@x.com", "Sw0rd!abc")
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("want Forbidden for blocked account, got %v", err)
	}
	// Wrong password on a blocked account stays generic.
	_, err = f.accounts.Authenticate(context.Background(), "alice@x.com", "Wr0ng!abc")
	if apperr.KindOf(err) != apperr.KindUnauthenticated {
		t.Fatalf("wrong password must stay generic, got %v", err)
	}
}

func TestAuthenticateUpdatesLastLogin(t *testing.T) {
	f := newAccountFixture(t)
	u := mustRegister(t, f, "Alice", "alice@x.com")
	if u.LastLoginAt != nil {
		t.Fatal("fresh account must have no last login")
	}
	if _, err := f.accounts.Authenticate(context.Background(), "alice@x.com", "Sw0rd!abc"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	got, _ := f.accounts.Get(context.Background(), u.ID)
	if got.LastLoginAt == nil {
		t.Fatal("last login not recorded")
	}
}

func TestLoginOpensSessionAndLogoutRevokes(t *testing.T) {
	f := newAccountFixture(t)
	mustRegister(t, f, "Alice", "alice@x.com")

	res, err := f.accounts.Login(context.Background(), "alice@x.com", "Sw0rd!abc", "127.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, _, err := f.guard.Authenticate(context.Background(), res.Token); err != nil {
		t.Fatalf("fresh token must authenticate: %v", err)
	}

	if err := f.sessions.Close(context.Background(), res.TokenID); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Token has not expired, but the session revocation must win.
	if _, _, err := f.guard.Authenticate(context.Background(), res.Token); err == nil {
		t.Fatal("revoked session must not authenticate")
	}
}

func TestChangeStatusGuards(t *testing.T) {
	f := newAccountFixture(t)
	admin := mustCreateAdmin(t, f, "admin@x.com")
	peer := mustCreateAdmin(t, f, "peer@x.com")
	alice := mustRegister(t, f, "Alice", "alice@x.com")

	ctx := context.Background()
	if _, err := f.accounts.ChangeStatus(ctx, admin, admin.ID, models.StatusBlocked, nil); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("self-block: want Forbidden, got %v", err)
	}
	if _, err := f.accounts.ChangeStatus(ctx, admin, peer.ID, models.StatusBlocked, nil); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("blocking an admin: want Forbidden, got %v", err)
	}

	reason := "abuse"
	blocked, err := f.accounts.ChangeStatus(ctx, admin, alice.ID, models.StatusBlocked, &reason)
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if blocked.Status != models.StatusBlocked || blocked.BlockedAt == nil || blocked.BlockedReason == nil {
		t.Fatalf("block fields not recorded: %+v", blocked)
	}

	// Unblocking clears the moderation fields.
	active, err := f.accounts.ChangeStatus(ctx, admin, alice.ID, models.StatusActive, nil)
	if err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if active.Status != models.StatusActive || active.BlockedAt != nil || active.BlockedReason != nil {
		t.Fatalf("moderation fields not cleared: %+v", active)
	}
}

func TestUnblockAnotherAdminAllowed(t *testing.T) {
	f := newAccountFixture(t)
	admin := mustCreateAdmin(t, f, "admin@x.com")
	peer := mustCreateAdmin(t, f, "peer@x.com")

	// Simulate a peer admin that ended up suspended.
	now := time.Now()
	_ = f.users.UpdateFields(context.Background(), peer.ID, map[string]any{
		"status": models.StatusSuspended, "blocked_at": &now,
	})

	u, err := f.accounts.ChangeStatus(context.Background(), admin, peer.ID, models.StatusActive, nil)
	if err != nil {
		t.Fatalf("unblocking an admin must be allowed: %v", err)
	}
	if u.Status != models.StatusActive {
		t.Fatalf("status = %s, want active", u.Status)
	}
}

func TestChangeStatusRequiresActiveSource(t *testing.T) {
	f := newAccountFixture(t)
	admin := mustCreateAdmin(t, f, "admin@x.com")
	alice := mustRegister(t, f, "Alice", "alice@x.com")

	ctx := context.Background()
	if _, err := f.accounts.ChangeStatus(ctx, admin, alice.ID, models.StatusBlocked, nil); err != nil {
		t.Fatalf("block: %v", err)
	}
	// blocked -> suspended is not a legal transition.
	if _, err := f.accounts.ChangeStatus(ctx, admin, alice.ID, models.StatusSuspended, nil); err == nil {
		t.Fatal("blocked account cannot be suspended")
	}
}

func TestChangeRole(t *testing.T) {
	f := newAccountFixture(t)
	admin := mustCreateAdmin(t, f, "admin@x.com")
	alice := mustRegister(t, f, "Alice", "alice@x.com")

	ctx := context.Background()
	if _, err := f.accounts.ChangeRole(ctx, admin, admin.ID, models.RoleUser); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("self role-change: want Forbidden, got %v", err)
	}
	if _, err := f.accounts.ChangeRole(ctx, admin, alice.ID, "superuser"); apperr.KindOf(err) != apperr.KindInvalidInput {
		t.Fatalf("bogus role: want InvalidInput, got %v", err)
	}
	u, err := f.accounts.ChangeRole(ctx, admin, alice.ID, models.RoleAdmin)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if u.Role != models.RoleAdmin {
		t.Fatalf("role = %s, want admin", u.Role)
	}
}

func TestAdminCreate(t *testing.T) {
	f := newAccountFixture(t)
	admin := mustCreateAdmin(t, f, "admin@x.com")

	u, err := f.accounts.AdminCreate(context.Background(), admin, service.AdminCreateInput{
		RegisterInput: service.RegisterInput{
			Name: "Bob", Email: "bob@x.com", Mobile: "12345678", Password: "Sw0rd!abc",
		},
		Role: models.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if u.Role != models.RoleAdmin || !u.IsEmailVerified {
		t.Fatalf("admin-created account wrong shape: %+v", u)
	}

	// The unified password policy applies on this path too.
	_, err = f.accounts.AdminCreate(context.Background(), admin, service.AdminCreateInput{
		RegisterInput: service.RegisterInput{
			Name: "Eve", Email: "eve@x.com", Mobile: "12345678", Password: "abc123",
		},
		Role: models.RoleUser,
	})
	if apperr.KindOf(err) != apperr.KindInvalidInput {
		t.Fatalf("want InvalidInput for weak password, got %v", err)
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	f := newAccountFixture(t)
	alice := mustRegister(t, f, "Alice", "alice@x.com")
	oldHash := alice.PasswordHash

	name := "Alice B"
	pw := "N3wSw0rd!x"
	u, err := f.accounts.UpdateProfile(context.Background(), alice.ID, service.UpdateProfileInput{
		Name:     &name,
		Password: &pw,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if u.Name != "Alice B" {
		t.Fatalf("name = %q", u.Name)
	}
	if u.Email != "alice@x.com" || u.Mobile != "12345678" {
		t.Fatalf("untouched fields changed: %+v", u)
	}
	if u.PasswordHash == oldHash {
		t.Fatal("password was not re-hashed")
	}
	if err := auth.CheckPassword(u.PasswordHash, pw); err != nil {
		t.Fatalf("new password does not verify: %v", err)
	}
}

func TestStats(t *testing.T) {
	f := newAccountFixture(t)
	admin := mustCreateAdmin(t, f, "admin@x.com")
	alice := mustRegister(t, f, "Alice", "alice@x.com")
	mustRegister(t, f, "Bob", "bob@x.com")
	if _, err := f.accounts.ChangeStatus(context.Background(), admin, alice.ID, models.StatusSuspended, nil); err != nil {
		t.Fatalf("suspend: %v", err)
	}

	stats, err := f.accounts.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalUsers != 3 || stats.ActiveUsers != 2 || stats.SuspendedUsers != 1 {
		t.Fatalf("stats mismatch: %+v", stats)
	}
	if stats.UsersToday != 3 {
		t.Fatalf("users today = %d, want 3", stats.UsersToday)
	}
}

func TestModerationWritesAudit(t *testing.T) {
	f := newAccountFixture(t)
	admin := mustCreateAdmin(t, f, "admin@x.com")
	alice := mustRegister(t, f, "Alice", "alice@x.com")

	reason := "spam"
	if _, err := f.accounts.ChangeStatus(context.Background(), admin, alice.ID, models.StatusBlocked, &reason); err != nil {
		t.Fatalf("block: %v", err)
	}
	entries := f.audit.Entries()
	if len(entries) != 1 || entries[0].Action != "user.status_change" {
		t.Fatalf("audit entries: %+v", entries)
	}
}
