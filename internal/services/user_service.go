package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/userhub/engine/internal/models"
	"github.com/userhub/engine/internal/randomuser"
	"github.com/userhub/engine/internal/repository"
	"github.com/userhub/engine/pkg/cache"
	appErr "github.com/userhub/engine/pkg/errors"
	"github.com/userhub/engine/pkg/logger"
	"go.uber.org/zap"
)

const userNotFound = "User not found"

// Fetcher pulls raw records from the upstream generator.
type Fetcher interface {
	FetchBatch(ctx context.Context, count int) ([]randomuser.RawUser, error)
}

type UserService interface {
	// FetchAndSave ingests count upstream records. Per-record failures are
	// reported in the BatchReport and never abort the batch.
	FetchAndSave(ctx context.Context, count int) (*BatchReport, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Update(ctx context.Context, id uint, upd models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id uint) error
	GetRandom(ctx context.Context) (*models.User, error)
}

type ItemStatus string

const (
	ItemCreated  ItemStatus = "created"
	ItemInvalid  ItemStatus = "invalid"
	ItemConflict ItemStatus = "conflict"
	ItemFailed   ItemStatus = "failed"
)

type ItemResult struct {
	Index  int        `json:"index"`
	Status ItemStatus `json:"status"`
	Email  string     `json:"email"`
	Reason string     `json:"reason,omitempty"`
}

type BatchReport struct {
	Requested int           `json:"requested"`
	Created   []models.User `json:"created"`
	Items     []ItemResult  `json:"items"`
}

// Skipped is the number of records that were not stored.
func (r *BatchReport) Skipped() int {
	return len(r.Items) - len(r.Created)
}

type UserServiceOptions struct {
	CacheTTL      time.Duration
	MaxFetchCount int
}

type userService struct {
	repo     repository.UserRepository
	fetcher  Fetcher
	cache    cache.Cache
	validate *validator.Validate
	ttl      time.Duration
	maxCount int
}

func NewUserService(repo repository.UserRepository, fetcher Fetcher, c cache.Cache, opts UserServiceOptions) UserService {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 300 * time.Second
	}
	if opts.MaxFetchCount <= 0 {
		opts.MaxFetchCount = 5000
	}
	return &userService{
		repo:     repo,
		fetcher:  fetcher,
		cache:    c,
		validate: validator.New(),
		ttl:      opts.CacheTTL,
		maxCount: opts.MaxFetchCount,
	}
}

var _ UserService = (*userService)(nil)

func (s *userService) FetchAndSave(ctx context.Context, count int) (*BatchReport, error) {
	if count > s.maxCount {
		return nil, appErr.New(appErr.CodeInvalid, fmt.Sprintf("Too many users requested, max - %d", s.maxCount))
	}
	if count < 1 {
		return nil, appErr.New(appErr.CodeInvalid, "count must be at least 1")
	}

	logger.L().Info("fetch users start", zap.Int("count", count))
	raw, err := s.fetcher.FetchBatch(ctx, count)
	if err != nil {
		logger.L().Error("fetch users failed", zap.Int("count", count), zap.Error(err))
		return nil, err
	}

	report := &BatchReport{Requested: count, Created: []models.User{}, Items: make([]ItemResult, 0, len(raw))}
	for i, r := range raw {
		report.Items = append(report.Items, s.saveOne(ctx, i, r, report))
	}

	if len(report.Created) > 0 {
		s.cache.DeletePattern(ctx, cache.ListPattern)
	}
	logger.L().Info("fetch users done",
		zap.Int("requested", count),
		zap.Int("received", len(raw)),
		zap.Int("created", len(report.Created)),
		zap.Int("skipped", report.Skipped()))
	return report, nil
}

func (s *userService) saveOne(ctx context.Context, i int, r randomuser.RawUser, report *BatchReport) ItemResult {
	in := r.ToCreate()
	item := ItemResult{Index: i, Email: in.Email}

	if r.Err != nil {
		item.Status, item.Reason = ItemInvalid, r.Err.Error()
		logger.L().Warn("skipping undecodable user", zap.Int("index", i), zap.Error(r.Err))
		return item
	}

	if err := s.validate.Struct(in); err != nil {
		item.Status, item.Reason = ItemInvalid, validationMessage(err)
		logger.L().Warn("skipping invalid user", zap.Int("index", i), zap.String("email", in.Email), zap.String("reason", item.Reason))
		return item
	}

	u := in.ToUser()
	if err := s.repo.Create(ctx, &u); err != nil {
		var ae *appErr.AppError
		if errors.As(err, &ae) && ae.Code == appErr.CodeConflict {
			item.Status, item.Reason = ItemConflict, ae.Message
			logger.L().Warn("skipping duplicate user", zap.Int("index", i), zap.String("email", in.Email), zap.Any("field", ae.Meta["field"]))
			return item
		}
		item.Status, item.Reason = ItemFailed, appErr.MessageOf(err)
		logger.L().Error("store user failed", zap.Int("index", i), zap.String("email", in.Email), zap.Error(err))
		return item
	}

	item.Status = ItemCreated
	report.Created = append(report.Created, u)
	return item
}

func (s *userService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	key := cache.UserKey(id)
	var u models.User
	if s.cache.Get(ctx, key, &u) {
		return &u, nil
	}
	if err := s.repo.GetByID(ctx, id, &u); err != nil {
		return nil, notFoundAsUser(err)
	}
	s.cache.Set(ctx, key, u, s.ttl)
	return &u, nil
}

func (s *userService) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	key := cache.ListKey(limit, offset)
	var page []models.User
	if s.cache.Get(ctx, key, &page) && page != nil {
		return page, nil
	}
	page, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, page, s.ttl)
	return page, nil
}

func (s *userService) Update(ctx context.Context, id uint, upd models.UserUpdate) (*models.User, error) {
	if err := s.validate.Struct(upd); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, validationMessage(err))
	}

	var existing models.User
	if err := s.repo.GetByID(ctx, id, &existing); err != nil {
		return nil, notFoundAsUser(err)
	}

	merged, changed := models.Merge(existing, upd)
	if len(changed) == 0 {
		return &existing, nil
	}
	if err := s.repo.Update(ctx, &merged, changed...); err != nil {
		return nil, notFoundAsUser(err)
	}

	s.invalidate(ctx, id)
	logger.L().Info("user updated", zap.Uint("id", id), zap.Strings("fields", changed))
	return &merged, nil
}

func (s *userService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundAsUser(err)
	}
	s.invalidate(ctx, id)
	logger.L().Info("user deleted", zap.Uint("id", id))
	return nil
}

func (s *userService) GetRandom(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := s.repo.GetRandom(ctx, &u); err != nil {
		return nil, notFoundAsUser(err)
	}
	return &u, nil
}

func (s *userService) invalidate(ctx context.Context, id uint) {
	s.cache.Delete(ctx, cache.UserKey(id))
	s.cache.DeletePattern(ctx, cache.ListPattern)
}

func notFoundAsUser(err error) error {
	if appErr.IsCode(err, appErr.CodeNotFound) {
		return appErr.Wrap(err, appErr.CodeNotFound, userNotFound)
	}
	return err
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}
