package member

import (
	"context"
	"strings"
	"time"

	"engagement-controlplane/pkg/db/option"
	"engagement-controlplane/pkg/errutil"
	"engagement-controlplane/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Directory is the read surface other services use to resolve members.
type Directory interface {
	Get(ctx context.Context, id string) (*Member, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type Service struct {
	repo repository.Repository[Member]
	node *snowflake.Node
}

type ServiceParams struct {
	fx.In

	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		repo: repository.ProvideStore[Member](p.DB),
		node: p.Node,
	}
}

type CreateMemberRequest struct {
	Name  string     `json:"name" binding:"required"`
	Email string     `json:"email" binding:"required,email"`
	Type  MemberType `json:"member_type"`
}

func (s *Service) Create(ctx context.Context, req CreateMemberRequest) (*Member, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, errutil.BadRequest("email is required", nil)
	}

	existing, err := s.repo.FindOne(ctx, &Member{Email: email})
	if err != nil {
		return nil, errutil.Internal("failed to look up member", err)
	}
	if existing != nil {
		return nil, errutil.Conflict("member with this email already exists", nil)
	}

	memberType := req.Type
	if memberType == "" {
		memberType = Standard
	}
	if memberType.String() == "" {
		return nil, errutil.BadRequest("invalid member type", nil)
	}

	now := time.Now().UTC()
	m := &Member{
		ID:        s.node.Generate().String(),
		CreatedAt: now,
		UpdatedAt: now,
		Name:      strings.TrimSpace(req.Name),
		Email:     email,
		Type:      memberType,
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, errutil.Internal("failed to create member", err)
	}

	zap.L().Info("member created",
		zap.String("member_id", m.ID),
		zap.String("member_type", m.Type.String()),
	)

	return m, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Member, error) {
	m, err := s.repo.FindOne(ctx, &Member{ID: id})
	if err != nil {
		return nil, errutil.Internal("failed to look up member", err)
	}
	if m == nil {
		return nil, errutil.NotFound("member not found", nil)
	}
	return m, nil
}

func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	count, err := s.repo.Count(ctx, &Member{ID: id})
	if err != nil {
		return false, errutil.Internal("failed to look up member", err)
	}
	return count > 0, nil
}

type ListMembersRequest struct {
	Limit  int `form:"limit,default=20"`
	Offset int `form:"offset"`
}

func (s *Service) List(ctx context.Context, req ListMembersRequest) ([]*Member, error) {
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}

	members, err := s.repo.Find(ctx, &Member{},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
		option.WithLimit(req.Limit),
		option.WithOffset(req.Offset),
	)
	if err != nil {
		return nil, errutil.Internal("failed to list members", err)
	}
	return members, nil
}
