package user

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "campusvote/pkg/domain-errors"
)

func newTestService() (*Service, *MemoryStore, time.Time) {
	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	svc := &Service{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		now:    func() time.Time { return now },
	}
	return svc, store, now
}

func seedUser(t *testing.T, store *MemoryStore, u User) *User {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), &u))
	return &u
}

func pendingVoter(id string) User {
	return User{
		ID:               id,
		FullName:         "Voter " + id,
		Email:            id + "@campus.test",
		Mobile:           "+91900000" + id,
		Role:             RoleVoter,
		ApprovalStatus:   ApprovalPending,
		EnrollmentID:     "ENR-" + id,
		IsEmailVerified:  true,
		IsMobileVerified: true,
		IsActive:         true,
	}
}

func TestSetApproval(t *testing.T) {
	svc, store, now := newTestService()
	ctx := context.Background()
	seedUser(t, store, pendingVoter("u1"))

	u, err := svc.SetApproval(ctx, "u1", ApprovalApproved, "documents checked", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, ApprovalApproved, u.ApprovalStatus)
	assert.Equal(t, "documents checked", u.ApprovalNote)
	assert.Equal(t, "admin-1", u.ApprovedBy)
	require.NotNil(t, u.ApprovedAt)
	assert.Equal(t, now, *u.ApprovedAt)

	// Decisions can be revised.
	u, err = svc.SetApproval(ctx, "u1", ApprovalRejected, "enrollment mismatch", "admin-2")
	require.NoError(t, err)
	assert.Equal(t, ApprovalRejected, u.ApprovalStatus)
	assert.Equal(t, "admin-2", u.ApprovedBy)
}

func TestSetApprovalRejectsPending(t *testing.T) {
	svc, store, _ := newTestService()
	seedUser(t, store, pendingVoter("u1"))

	_, err := svc.SetApproval(context.Background(), "u1", ApprovalPending, "", "admin-1")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeBadRequest, dErrors.CodeOf(err))
}

func TestSetApprovalAdminAccountsExcluded(t *testing.T) {
	svc, store, _ := newTestService()
	seedUser(t, store, User{
		ID: "a1", FullName: "Admin", Email: "admin@campus.test", Mobile: "+919000000000",
		Role: RoleAdmin, AdminID: "ADM-1", AdminType: AdminElection,
		ApprovalStatus: ApprovalApproved, IsActive: true,
	})

	_, err := svc.SetApproval(context.Background(), "a1", ApprovalApproved, "", "admin-1")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeBadRequest, dErrors.CodeOf(err))
}

func TestSetApprovalUnknownUser(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.SetApproval(context.Background(), "missing", ApprovalApproved, "", "admin-1")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func TestSetActive(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	seedUser(t, store, pendingVoter("u1"))

	u, err := svc.SetActive(ctx, "u1", false)
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	u, err = svc.SetActive(ctx, "u1", true)
	require.NoError(t, err)
	assert.True(t, u.IsActive)
}

func TestListFiltersByRoleAndStatus(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	approved := pendingVoter("u1")
	approved.ApprovalStatus = ApprovalApproved
	seedUser(t, store, approved)
	seedUser(t, store, pendingVoter("u2"))
	cand := pendingVoter("u3")
	cand.Role = RoleCandidate
	seedUser(t, store, cand)

	voters, err := svc.List(ctx, ListFilter{Role: RoleVoter})
	require.NoError(t, err)
	assert.Len(t, voters, 2)

	pending, err := svc.List(ctx, ListFilter{Role: RoleVoter, Status: ApprovalPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "u2", pending[0].ID)

	all, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCountEligibleVoters(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	eligible := pendingVoter("u1")
	eligible.ApprovalStatus = ApprovalApproved
	seedUser(t, store, eligible)

	// Pending approval, unverified mobile, deactivated, candidate: none count.
	seedUser(t, store, pendingVoter("u2"))
	unverified := pendingVoter("u3")
	unverified.ApprovalStatus = ApprovalApproved
	unverified.IsMobileVerified = false
	seedUser(t, store, unverified)
	inactive := pendingVoter("u4")
	inactive.ApprovalStatus = ApprovalApproved
	inactive.IsActive = false
	seedUser(t, store, inactive)
	cand := pendingVoter("u5")
	cand.Role = RoleCandidate
	cand.ApprovalStatus = ApprovalApproved
	seedUser(t, store, cand)

	count, err := svc.CountEligibleVoters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
