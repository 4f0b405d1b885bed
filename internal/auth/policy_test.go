package auth

import (
	"context"
	"testing"

	"order-management-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanAccess(t *testing.T) {
	target := models.Identity{ID: 100, Email: "a@x.com"}

	tests := []struct {
		name   string
		caller Caller
		want   bool
	}{
		{"admin other user", Caller{Email: "root@x.com", Roles: []string{RoleAdmin}}, true},
		{"admin role without prefix", Caller{Email: "root@x.com", Roles: []string{"admin"}}, true},
		{"owner", Caller{Email: "a@x.com", Roles: []string{"ROLE_USER"}}, true},
		{"different email", Caller{Email: "b@x.com", Roles: []string{"ROLE_USER"}}, false},
		{"case differs", Caller{Email: "A@x.com", Roles: []string{"ROLE_USER"}}, false},
		{"no roles", Caller{Email: "b@x.com"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAccess(tt.caller, target))
		})
	}
}

func TestCanAccess_AdminIgnoresFallbackIdentity(t *testing.T) {
	admin := Caller{Email: "root@x.com", Roles: []string{"ROLE_USER", RoleAdmin}}
	fallback := models.Identity{ID: -1, Email: "unknown@gmail.com", Name: "unknown", Surname: "unknown"}

	assert.True(t, CanAccess(admin, fallback))
	assert.False(t, CanAccess(Caller{Email: "a@x.com"}, fallback))
}

func TestCanAccess_EmptyEmails(t *testing.T) {
	assert.False(t, CanAccess(Caller{}, models.Identity{}))
}

func TestCallerContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithCaller(context.Background(), Caller{Email: "a@x.com", Credential: "tok"})
	c, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "a@x.com", c.Email)
	assert.Equal(t, "tok", c.Credential)
}
