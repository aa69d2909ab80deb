package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/teacher-dashboard-api/pkg/errors"
)

type mockProfileRepo struct {
	users     map[string]*models.User
	auditLogs []*models.AuditLog
}

func (m *mockProfileRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProfileRepo) UpdateProfile(ctx context.Context, id, fullName string, updatedAt time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.FullName = fullName
	u.UpdatedAt = updatedAt
	return nil
}

func (m *mockProfileRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func TestProfileServiceGet(t *testing.T) {
	repo := &mockProfileRepo{users: map[string]*models.User{"u1": {ID: "u1", Email: "t@example.com", FullName: "Teacher", PasswordHash: "secret"}}}
	svc := NewProfileService(repo, nil, nil)

	profile, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "t@example.com", profile.Email)

	_, err = svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestProfileServiceUpdate(t *testing.T) {
	repo := &mockProfileRepo{users: map[string]*models.User{"u1": {ID: "u1", FullName: "Old"}}}
	svc := NewProfileService(repo, nil, nil)

	profile, err := svc.Update(context.Background(), "u1", UpdateProfileRequest{FullName: "  New Name "}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "New Name", profile.FullName)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionProfileUpdate, repo.auditLogs[0].Action)
}

func TestProfileServiceUpdateValidation(t *testing.T) {
	repo := &mockProfileRepo{users: map[string]*models.User{"u1": {ID: "u1", FullName: "Old"}}}
	svc := NewProfileService(repo, nil, nil)

	for _, name := range []string{"   ", strings.Repeat("a", 121)} {
		_, err := svc.Update(context.Background(), "u1", UpdateProfileRequest{FullName: name}, models.RequestMeta{})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
	assert.Equal(t, "Old", repo.users["u1"].FullName)
}
