package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	repos "github.com/loopworks/traintrack-backend/internal/data/repos/catalog"
	types "github.com/loopworks/traintrack-backend/internal/domain"
	"github.com/loopworks/traintrack-backend/internal/platform/apierr"
	"github.com/loopworks/traintrack-backend/internal/platform/logger"
)

const levelCacheTTL = 5 * time.Minute

type CourseInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	LevelTitles []string `json:"level_titles"`
}

// CatalogService is the course structure store. Level lists are static
// reference data, so reads go through a redis cache when one is configured;
// cache failures only ever degrade to a database read.
type CatalogService interface {
	CreateCourse(ctx context.Context, input CourseInput) (*types.Course, error)
	ListCourses(ctx context.Context) ([]*types.Course, error)
	GetCourse(ctx context.Context, courseID uuid.UUID) (*types.Course, error)
	GetOrderedLevels(ctx context.Context, courseID uuid.UUID) ([]*types.Level, error)
	GetLevel(ctx context.Context, levelID uuid.UUID) (*types.Level, error)
}

type catalogService struct {
	db         *gorm.DB
	log        *logger.Logger
	courseRepo repos.CourseRepo
	levelRepo  repos.LevelRepo
	rdb        *goredis.Client
}

func NewCatalogService(db *gorm.DB, baseLog *logger.Logger, courseRepo repos.CourseRepo, levelRepo repos.LevelRepo, rdb *goredis.Client) CatalogService {
	return &catalogService{
		db:         db,
		log:        baseLog.With("service", "CatalogService"),
		courseRepo: courseRepo,
		levelRepo:  levelRepo,
		rdb:        rdb,
	}
}

func (s *catalogService) CreateCourse(ctx context.Context, input CourseInput) (*types.Course, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apierr.New(http.StatusBadRequest, "invalid_request",
			fmt.Errorf("course title is required"))
	}
	if len(input.LevelTitles) == 0 {
		return nil, apierr.New(http.StatusBadRequest, "invalid_request",
			fmt.Errorf("a course needs at least one level"))
	}

	course := &types.Course{
		ID:          uuid.New(),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
	}
	levels := make([]*types.Level, 0, len(input.LevelTitles))
	for i, lt := range input.LevelTitles {
		levels = append(levels, &types.Level{
			ID:       uuid.New(),
			CourseID: course.ID,
			Ordinal:  i + 1,
			Title:    strings.TrimSpace(lt),
		})
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.courseRepo.Create(ctx, tx, []*types.Course{course}); err != nil {
			return storeErr("create course", err)
		}
		if _, err := s.levelRepo.Create(ctx, tx, levels); err != nil {
			return storeErr("create levels", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	s.invalidateLevelCache(ctx, course.ID)
	course.Levels = levels
	return course, nil
}

func (s *catalogService) ListCourses(ctx context.Context) ([]*types.Course, error) {
	courses, err := s.courseRepo.List(ctx, nil)
	if err != nil {
		return nil, storeErr("list courses", err)
	}
	return courses, nil
}

func (s *catalogService) GetCourse(ctx context.Context, courseID uuid.UUID) (*types.Course, error) {
	courses, err := s.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, storeErr("load course", err)
	}
	if len(courses) == 0 {
		return nil, ErrCourseNotFound
	}
	return courses[0], nil
}

func (s *catalogService) GetOrderedLevels(ctx context.Context, courseID uuid.UUID) ([]*types.Level, error) {
	if cached := s.levelsFromCache(ctx, courseID); cached != nil {
		return cached, nil
	}

	levels, err := s.levelRepo.GetByCourseIDOrdered(ctx, nil, courseID)
	if err != nil {
		return nil, storeErr("load ordered levels", err)
	}
	// A course with no levels is indistinguishable from an unknown course for
	// progression purposes.
	if len(levels) == 0 {
		return nil, ErrCourseNotFound
	}

	s.levelsToCache(ctx, courseID, levels)
	return levels, nil
}

func (s *catalogService) GetLevel(ctx context.Context, levelID uuid.UUID) (*types.Level, error) {
	levels, err := s.levelRepo.GetByIDs(ctx, nil, []uuid.UUID{levelID})
	if err != nil {
		return nil, storeErr("load level", err)
	}
	if len(levels) == 0 {
		return nil, ErrLevelNotFound
	}
	return levels[0], nil
}

func levelCacheKey(courseID uuid.UUID) string {
	return "catalog:levels:" + courseID.String()
}

func (s *catalogService) levelsFromCache(ctx context.Context, courseID uuid.UUID) []*types.Level {
	if s.rdb == nil {
		return nil
	}
	raw, err := s.rdb.Get(ctx, levelCacheKey(courseID)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			s.log.Debug("level cache read failed", "course_id", courseID.String(), "error", err)
		}
		return nil
	}
	var levels []*types.Level
	if err := json.Unmarshal(raw, &levels); err != nil {
		s.log.Debug("level cache decode failed", "course_id", courseID.String(), "error", err)
		return nil
	}
	if len(levels) == 0 {
		return nil
	}
	return levels
}

func (s *catalogService) levelsToCache(ctx context.Context, courseID uuid.UUID, levels []*types.Level) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(levels)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, levelCacheKey(courseID), raw, levelCacheTTL).Err(); err != nil {
		s.log.Debug("level cache write failed", "course_id", courseID.String(), "error", err)
	}
}

func (s *catalogService) invalidateLevelCache(ctx context.Context, courseID uuid.UUID) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, levelCacheKey(courseID)).Err(); err != nil {
		s.log.Debug("level cache invalidation failed", "course_id", courseID.String(), "error", err)
	}
}
