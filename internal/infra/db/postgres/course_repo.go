package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-copy/internal/domain"
	"course-copy/internal/domain/model"
	"course-copy/internal/domain/ports/repository"
)

var (
	_ repository.CourseRepository   = (*courseRepo)(nil)
	_ repository.CategoryRepository = (*categoryRepo)(nil)
)

type courseRepo struct {
	pool *pgxpool.Pool
}

func NewCourseRepo(pool *pgxpool.Pool) *courseRepo {
	return &courseRepo{pool: pool}
}

func (r *courseRepo) Create(ctx context.Context, tx repository.Tx, c *model.Course) error {
	sections, err := json.Marshal(nonNilSections(c.Sections))
	if err != nil {
		return fmt.Errorf("encode sections: %w", err)
	}
	const q = `
INSERT INTO courses (
  id, category_id, full_name, short_name, id_number, visible, start_at, end_at,
  summary, sections, member_ids, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13);`
	_, err = execSQL(ctx, r.pool, tx, q,
		c.ID, c.CategoryID, c.FullName, c.ShortName, c.IDNumber, c.Visible, c.StartAt, c.EndAt,
		c.Summary, sections, nonNilStrings(c.MemberIDs), c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrShortNameTaken
	}
	return err
}

func (r *courseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Course, error) {
	const q = `
SELECT id, category_id, full_name, short_name, id_number, visible, start_at, end_at,
       summary, sections, member_ids, created_at, updated_at
  FROM courses WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var c model.Course
	var sections []byte
	if err := row.Scan(&c.ID, &c.CategoryID, &c.FullName, &c.ShortName, &c.IDNumber, &c.Visible,
		&c.StartAt, &c.EndAt, &c.Summary, &sections, &c.MemberIDs, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	if err := json.Unmarshal(sections, &c.Sections); err != nil {
		return nil, fmt.Errorf("decode sections: %w", err)
	}
	return &c, nil
}

func (r *courseRepo) ShortNameExists(ctx context.Context, tx repository.Tx, shortName string) (bool, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT EXISTS (SELECT 1 FROM courses WHERE short_name=$1);`, shortName)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, fmt.Errorf("check short name: %w", err)
	}
	return ok, nil
}

func (r *courseRepo) ReplaceContent(ctx context.Context, tx repository.Tx, id, fullName, summary string, sections []model.Section, memberIDs []string) error {
	raw, err := json.Marshal(nonNilSections(sections))
	if err != nil {
		return fmt.Errorf("encode sections: %w", err)
	}
	const q = `
UPDATE courses
   SET full_name=$2, summary=$3, sections=$4, member_ids=$5, updated_at=NOW()
 WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, fullName, summary, raw, nonNilStrings(memberIDs))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *courseRepo) ApplyOverrides(ctx context.Context, tx repository.Tx, id string, o model.CourseOverrides) error {
	const q = `
UPDATE courses
   SET full_name=$2, short_name=$3, id_number=$4, visible=$5, start_at=$6, end_at=$7, updated_at=NOW()
 WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, o.FullName, o.ShortName, o.IDNumber, o.Visible, o.StartAt, o.EndAt)
	if isUniqueViolation(err) {
		return domain.ErrShortNameTaken
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type categoryRepo struct {
	pool *pgxpool.Pool
}

func NewCategoryRepo(pool *pgxpool.Pool) *categoryRepo {
	return &categoryRepo{pool: pool}
}

func (r *categoryRepo) Exists(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT EXISTS (SELECT 1 FROM course_categories WHERE id=$1);`, id)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, fmt.Errorf("check category: %w", err)
	}
	return ok, nil
}

func nonNilSections(s []model.Section) []model.Section {
	if s == nil {
		return []model.Section{}
	}
	return s
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
