package session

import (
	"context"
	"testing"
	"time"

	"clinicdesk/internal/clinicapi"
	"clinicdesk/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims tokenClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestFromLogin(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signToken(t, tokenClaims{
		Role: "ROLE_DOCTOR",
		Name: "Dr Lan",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	tests := []struct {
		name    string
		resp    clinicapi.LoginResponse
		want    Session
		wantErr error
	}{
		{
			name: "role from account",
			resp: clinicapi.LoginResponse{Token: "opaque", Account: model.Account{ID: 1, FullName: "Mai", Role: "customer"}},
			want: Session{AccountID: 1, DisplayName: "Mai", Role: model.RoleCustomer, Token: "opaque"},
		},
		{
			name: "role from token claim",
			resp: clinicapi.LoginResponse{Token: token},
			want: Session{AccountID: 42, DisplayName: "Dr Lan", Role: model.RoleDoctor, Token: token, ExpiresAt: exp},
		},
		{
			name: "account role wins over claim",
			resp: clinicapi.LoginResponse{Token: token, Account: model.Account{ID: 7, FullName: "Admin", Role: "ROLE_ADMIN"}},
			want: Session{AccountID: 7, DisplayName: "Admin", Role: model.RoleAdmin, Token: token, ExpiresAt: exp},
		},
		{
			name:    "no role anywhere",
			resp:    clinicapi.LoginResponse{Token: "opaque", Account: model.Account{ID: 1}},
			wantErr: ErrNoRole,
		},
		{
			name:    "unknown role",
			resp:    clinicapi.LoginResponse{Token: "opaque", Account: model.Account{ID: 1, Role: "nurse"}},
			wantErr: ErrNoRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromLogin(&tt.resp)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.AccountID, got.AccountID)
			assert.Equal(t, tt.want.DisplayName, got.DisplayName)
			assert.Equal(t, tt.want.Role, got.Role)
			assert.Equal(t, tt.want.Token, got.Token)
			assert.True(t, tt.want.ExpiresAt.Equal(got.ExpiresAt))
		})
	}
}

func TestFromLogin_FallbackDisplayName(t *testing.T) {
	got, err := FromLogin(&clinicapi.LoginResponse{Token: "x", Account: model.Account{ID: 9, Role: "staff"}})
	require.NoError(t, err)
	assert.Equal(t, "account #9", got.DisplayName)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	sess := &Session{AccountID: 5, Role: model.RoleCustomer, Token: "t"}
	require.NoError(t, s.Put(ctx, 1, sess))
	sess.Token = "mutated"

	got, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Token)

	require.NoError(t, s.Delete(ctx, 1))
	_, err = s.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, 1, &Session{Role: model.RoleDoctor, ExpiresAt: now.Add(time.Minute)}))
	_, err := s.Get(ctx, 1)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	s := NewRedisStore(rdb, time.Hour)
	_, err := s.Get(ctx, 3)
	assert.ErrorIs(t, err, ErrNotFound)

	sess := &Session{AccountID: 11, DisplayName: "Mai", Role: model.RoleCustomer, Token: "tok"}
	require.NoError(t, s.Put(ctx, 3, sess))
	assert.Equal(t, time.Hour, mr.TTL("clinicdesk:session:3"))

	got, err := s.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, *sess, *got)

	require.NoError(t, s.Delete(ctx, 3))
	assert.False(t, mr.Exists("clinicdesk:session:3"))
}

func TestRedisStore_TTLCappedByTokenExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	s := NewRedisStore(rdb, time.Hour)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, 4, &Session{Role: model.RoleDoctor, ExpiresAt: now.Add(10 * time.Minute)}))
	assert.Equal(t, 10*time.Minute, mr.TTL("clinicdesk:session:4"))

	mr.FastForward(11 * time.Minute)
	_, err := s.Get(ctx, 4)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStores_RejectAlreadyExpiredToken(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	expired := &Session{AccountID: 4, Role: model.RoleDoctor, Token: "old", ExpiresAt: now.Add(-time.Second)}

	rs := NewRedisStore(rdb, time.Hour)
	rs.now = func() time.Time { return now }
	assert.ErrorIs(t, rs.Put(ctx, 4, expired), ErrExpired)
	assert.False(t, mr.Exists("clinicdesk:session:4"))

	ms := NewMemoryStore()
	ms.now = func() time.Time { return now }
	assert.ErrorIs(t, ms.Put(ctx, 4, expired), ErrExpired)
	_, err := ms.Get(ctx, 4)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_List(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, 1, &Session{AccountID: 10, Role: model.RoleCustomer, ChatID: 100}))
	require.NoError(t, s.Put(ctx, 2, &Session{AccountID: 20, Role: model.RoleDoctor, ExpiresAt: now.Add(time.Minute)}))

	now = now.Add(2 * time.Minute)
	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(10), all[1].AccountID)
	assert.Equal(t, int64(100), all[1].ChatID)
}

func TestRedisStore_List(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	s := NewRedisStore(rdb, time.Hour)
	require.NoError(t, s.Put(ctx, 3, &Session{AccountID: 11, Role: model.RoleCustomer, Token: "a", ChatID: 300}))
	require.NoError(t, s.Put(ctx, 5, &Session{AccountID: 12, Role: model.RoleDoctor, Token: "b"}))
	require.NoError(t, mr.Set("clinicdesk:session:garbage", "{}"))
	require.NoError(t, mr.Set("other:key", "x"))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[3].Token)
	assert.Equal(t, int64(300), all[3].ChatID)
	assert.Equal(t, model.RoleDoctor, all[5].Role)
}
