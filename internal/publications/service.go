package publications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"

	"github.com/neighbora/neighbora-api/internal/auth"
	"github.com/neighbora/neighbora-api/internal/platform/mongodb"
	"github.com/neighbora/neighbora-api/internal/shared"
)

const (
	defaultAuthorName    = "Admin"
	defaultCommenterName = "Usuario"
)

// CondominiumChecker confirms a condominium exists and is active.
type CondominiumChecker interface {
	Exists(ctx context.Context, id string) error
}

type Service struct {
	repo         Repository
	condominiums CondominiumChecker
	now          func() time.Time
}

func NewService(repo Repository, condominiums CondominiumChecker) *Service {
	return &Service{repo: repo, condominiums: condominiums, now: func() time.Time { return time.Now().UTC() }}
}

// Board returns the visible publications of a condominium, newest first.
func (s *Service) Board(ctx context.Context, condominiumID string, f Filter, page shared.PageRequest) ([]Publication, shared.Pagination, error) {
	cid, err := mongodb.ParseID(condominiumID)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	items, total, err := s.repo.PageVisible(ctx, cid, f, s.now(), page)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if items == nil {
		items = []Publication{}
	}
	return items, shared.NewPagination(page.Page, page.PerPage, int(total)), nil
}

// View returns a publication and counts the read.
func (s *Service) View(ctx context.Context, id string) (*Publication, error) {
	oid, err := mongodb.ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.IncrementViews(ctx, oid)
}

func (s *Service) Create(ctx context.Context, author *auth.Principal, in CreateInput) (*Publication, error) {
	if author == nil || author.UID == "" {
		return nil, shared.ErrUnauthenticated
	}
	cid, err := mongodb.ParseID(in.CondominiumID)
	if err != nil {
		return nil, err
	}
	if err := s.condominiums.Exists(ctx, in.CondominiumID); err != nil {
		return nil, err
	}
	now := s.now()
	p := &Publication{
		CondominiumID:  cid,
		Title:          strings.TrimSpace(in.Title),
		Content:        in.Content,
		Category:       in.Category,
		Priority:       in.Priority,
		Author:         Author{FirebaseUID: author.UID, Name: author.Name, Role: AuthorAdmin},
		Attachments:    in.Attachments,
		IsVisible:      true,
		PublishDate:    now,
		ExpirationDate: in.ExpirationDate,
		Reactions:      []Reaction{},
		Comments:       []Comment{},
		IsActive:       true,
		CreatedBy:      author.UID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if p.Author.Name == "" {
		p.Author.Name = defaultAuthorName
	}
	if p.Priority == "" {
		p.Priority = PriorityMedium
	}
	if p.Attachments == nil {
		p.Attachments = []Attachment{}
	}
	if in.PublishDate != nil {
		p.PublishDate = in.PublishDate.UTC()
	}
	if err := validateWindow(p.PublishDate, p.ExpirationDate); err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, actor, id string, in UpdateInput) (*Publication, error) {
	oid, err := mongodb.ParseID(id)
	if err != nil {
		return nil, err
	}
	set := bson.M{"lastModifiedBy": actor}
	if in.Title != nil {
		set["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		set["content"] = *in.Content
	}
	if in.Category != nil {
		set["category"] = *in.Category
	}
	if in.Priority != nil {
		set["priority"] = *in.Priority
	}
	if in.IsVisible != nil {
		set["isVisible"] = *in.IsVisible
	}
	if in.ExpirationDate != nil {
		set["expirationDate"] = in.ExpirationDate.UTC()
	}
	return s.repo.Update(ctx, oid, set)
}

// Delete hides a publication from every listing.
func (s *Service) Delete(ctx context.Context, actor, id string) error {
	oid, err := mongodb.ParseID(id)
	if err != nil {
		return err
	}
	_, err = s.repo.Update(ctx, oid, bson.M{"isActive": false, "lastModifiedBy": actor})
	return err
}

func (s *Service) React(ctx context.Context, uid, id string, in ReactionInput) (*Publication, error) {
	if uid == "" {
		return nil, shared.ErrUnauthenticated
	}
	oid, err := mongodb.ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.React(ctx, oid, Reaction{FirebaseUID: uid, Type: in.Type, Date: s.now()})
}

func (s *Service) Comment(ctx context.Context, author *auth.Principal, id string, in CommentInput) (*Publication, error) {
	if author == nil || author.UID == "" {
		return nil, shared.ErrUnauthenticated
	}
	oid, err := mongodb.ParseID(id)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: comment content is required", shared.ErrValidation)
	}
	name := author.Name
	if name == "" {
		name = defaultCommenterName
	}
	return s.repo.AddComment(ctx, oid, Comment{
		ID:          uuid.NewString(),
		FirebaseUID: author.UID,
		UserName:    name,
		Content:     content,
		Date:        s.now(),
	})
}

// Stats aggregates the board of a condominium per category.
func (s *Service) Stats(ctx context.Context, condominiumID string) (*Stats, error) {
	cid, err := mongodb.ParseID(condominiumID)
	if err != nil {
		return nil, err
	}
	var (
		buckets []CategoryBucket
		views   int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		buckets, err = s.repo.CategoryBreakdown(gctx, cid)
		return err
	})
	g.Go(func() error {
		var err error
		views, err = s.repo.TotalViews(gctx, cid)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := &Stats{TotalViews: views, ByCategory: buckets}
	if out.ByCategory == nil {
		out.ByCategory = []CategoryBucket{}
	}
	for _, b := range buckets {
		out.TotalPublications += b.Count
	}
	return out, nil
}

func validateWindow(publish time.Time, expiration *time.Time) error {
	if expiration != nil && !expiration.After(publish) {
		return fmt.Errorf("%w: expirationDate must be after publishDate", shared.ErrValidation)
	}
	return nil
}
