package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type loginFixture struct {
	auth  *Authenticator
	codec *TokenCodec
	repo  *SQLiteAccountRepository
	sink  *recordingSink
	logs  *bytes.Buffer
}

func newLoginFixture(t *testing.T) *loginFixture {
	t.Helper()

	repo := NewAccountRepository(testDB(t))
	seedAccount(t, repo, "admin", "admin123", RoleAdmin, true)
	seedAccount(t, repo, "pupil", "pupil123", RoleStudent, true)
	seedAccount(t, repo, "orphan", "orphan123", "", true)
	seedAccount(t, repo, "left", "left123", RoleTeacher, false)

	codec := testCodec(t, repo, fixedClock(tokenEpoch))
	sink := &recordingSink{}
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, nil))

	return &loginFixture{
		auth:  NewAuthenticator(NewCredentialVerifier(repo), codec, sink, logger),
		codec: codec,
		repo:  repo,
		sink:  sink,
		logs:  logs,
	}
}

func TestAuthenticator_Login(t *testing.T) {
	f := newLoginFixture(t)

	tests := []struct {
		name        string
		username    string
		password    string
		wantRole    Role // "" means null token
		wantFailure string
	}{
		{"admin", "admin", "admin123", RoleAdmin, ""},
		{"student", "pupil", "pupil123", RoleStudent, ""},
		{"account without principal", "orphan", "orphan123", RoleStudent, ""},
		{"wrong password", "admin", "nope", "", "bad_password"},
		{"unknown user", "ghost", "admin123", "", "not_found"},
		{"inactive", "left", "left123", "", "inactive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.auth.Login(context.Background(), tt.username, tt.password)
			if err != nil {
				t.Fatalf("Login() error = %v", err)
			}

			last := f.sink.logins[len(f.sink.logins)-1]
			if last.Username != tt.username {
				t.Errorf("event username = %q, want %q", last.Username, tt.username)
			}

			if tt.wantRole == "" {
				if res != nil {
					t.Fatalf("Login() = %+v, want nil", res)
				}
				if last.Success || last.Failure != tt.wantFailure {
					t.Errorf("event = %+v, want failure %s", last, tt.wantFailure)
				}
				return
			}

			if res == nil || res.AccessToken == "" {
				t.Fatal("Login() returned no token")
			}
			claims, err := f.codec.Verify(res.AccessToken)
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if claims.Role != tt.wantRole || claims.Username != tt.username {
				t.Errorf("claims = %+v, want %s as %s", claims, tt.username, tt.wantRole)
			}
			if !last.Success || last.Role != tt.wantRole {
				t.Errorf("event = %+v, want success as %s", last, tt.wantRole)
			}
		})
	}
}

func TestAuthenticator_FailuresAreIndistinguishable(t *testing.T) {
	f := newLoginFixture(t)
	ctx := context.Background()

	for _, c := range [][2]string{{"admin", "nope"}, {"ghost", "x"}, {"left", "left123"}} {
		res, err := f.auth.Login(ctx, c[0], c[1])
		if res != nil || err != nil {
			t.Errorf("Login(%q) = %v, %v, want nil, nil", c[0], res, err)
		}
	}
}

func TestAuthenticator_WrongPasswordNeverReachesTokenVerify(t *testing.T) {
	f := newLoginFixture(t)
	ctx := context.Background()

	res, err := f.auth.Login(ctx, "admin", "wrong")
	if err != nil || res != nil {
		t.Fatalf("Login() = %v, %v, want nil, nil", res, err)
	}

	table, err := NewPolicyTable(DefaultPolicies())
	if err != nil {
		t.Fatalf("NewPolicyTable() error = %v", err)
	}
	verifier := &countingVerifier{inner: f.codec}
	p := NewPipeline(table, verifier)

	// The client has no token to present after a failed login.
	_, err = p.Evaluate(ctx, Request{Operation: OpMe})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Evaluate() error = %v, want ErrUnauthenticated", err)
	}
	if verifier.Calls() != 0 {
		t.Errorf("token verifier called %d times, want 0", verifier.Calls())
	}
}

func TestAuthenticator_InfrastructureFault(t *testing.T) {
	down := errors.New("database is locked")
	verifier := NewCredentialVerifier(lookupFunc(func(context.Context, string) (*Credential, error) {
		return nil, down
	}))
	codec := testCodec(t, staticRoles{}, fixedClock(tokenEpoch))
	sink := &recordingSink{}

	res, err := NewAuthenticator(verifier, codec, sink, nil).Login(context.Background(), "admin", "admin123")
	if res != nil {
		t.Errorf("Login() = %+v, want nil", res)
	}
	if !errors.Is(err, ErrInfrastructure) || !errors.Is(err, down) {
		t.Errorf("Login() error = %v, want ErrInfrastructure wrapping cause", err)
	}
	if len(sink.logins) != 1 || sink.logins[0].Failure != "infrastructure" {
		t.Errorf("events = %+v, want one infrastructure failure", sink.logins)
	}
}

func TestAuthenticator_RoleLookupFault(t *testing.T) {
	repo := NewAccountRepository(testDB(t))
	seedAccount(t, repo, "admin", "admin123", RoleAdmin, true)
	codec := testCodec(t, failingRoles{errors.New("disk I/O error")}, fixedClock(tokenEpoch))

	res, err := NewAuthenticator(NewCredentialVerifier(repo), codec, nil, nil).
		Login(context.Background(), "admin", "admin123")
	if res != nil || !errors.Is(err, ErrInfrastructure) {
		t.Errorf("Login() = %v, %v, want nil, ErrInfrastructure", res, err)
	}
}

func TestAuthenticator_NeverLogsPassword(t *testing.T) {
	f := newLoginFixture(t)
	ctx := WithClientAddr(context.Background(), "192.0.2.1")

	f.auth.Login(ctx, "admin", "admin123")          //nolint:errcheck // log inspection only
	f.auth.Login(ctx, "admin", "sup3r-s3cret-guess") //nolint:errcheck // log inspection only

	out := f.logs.String()
	for _, secret := range []string{"admin123", "sup3r-s3cret-guess", "$argon2id$"} {
		if strings.Contains(out, secret) {
			t.Errorf("logs contain %q:\n%s", secret, out)
		}
	}
	if !strings.Contains(out, `"reason":"bad_password"`) {
		t.Errorf("logs should name the failure kind:\n%s", out)
	}
	if f.sink.logins[0].ClientAddr != "192.0.2.1" {
		t.Errorf("event ClientAddr = %q", f.sink.logins[0].ClientAddr)
	}
}
