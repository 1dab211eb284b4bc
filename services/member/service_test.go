package member

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"

	"engagement-controlplane/pkg/errutil"
	"engagement-controlplane/services/testutil"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &Member{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParams{DB: db, Node: node})
}

func TestService_CreateAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateMemberRequest{
		Name:  "Ada",
		Email: "Ada@Example.com",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "ada@example.com", created.Email)
	require.Equal(t, Standard, created.Type)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, "Ada", got.Name)
}

func TestService_CreateDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateMemberRequest{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateMemberRequest{Name: "Other", Email: "ada@example.com"})
	require.Error(t, err)

	var baseErr errutil.BaseError
	require.ErrorAs(t, err, &baseErr)
	require.Equal(t, errutil.StatusConflict, baseErr.Status())
}

func TestService_CreateInvalidType(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), CreateMemberRequest{
		Name:  "Ada",
		Email: "ada@example.com",
		Type:  MemberType("robot"),
	})
	require.Error(t, err)
}

func TestService_GetMissing(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), "does-not-exist")
	require.Error(t, err)

	var baseErr errutil.BaseError
	require.ErrorAs(t, err, &baseErr)
	require.Equal(t, errutil.StatusNotFound, baseErr.Status())
}

func TestService_Exists(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateMemberRequest{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	ok, err := svc.Exists(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.Exists(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestService_List(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateMemberRequest{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateMemberRequest{Name: "Grace", Email: "grace@example.com"})
	require.NoError(t, err)

	members, err := svc.List(ctx, ListMembersRequest{Limit: 10})
	require.NoError(t, err)
	require.Len(t, members, 2)
}
