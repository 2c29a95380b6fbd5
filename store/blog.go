package store

import "context"

type blogRepo struct{ s *SQLStore }

const blogColumns = `id, title, slug, excerpt, content, category, image_url, published_at, is_active, created_at, updated_at`

func scanBlogPost(sc scanner) (BlogPost, error) {
	var p BlogPost
	err := sc.Scan(&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Content, &p.Category,
		&p.ImageURL, &p.PublishedAt, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// List returns posts newest first. The category filter is applied before the
// limit.
func (r blogRepo) List(ctx context.Context, f BlogFilter) ([]BlogPost, error) {
	q := `SELECT ` + blogColumns + ` FROM blog_posts WHERE 1=1`
	var args []any
	if !f.IncludeInactive {
		q += ` AND is_active = ?`
		args = append(args, true)
	}
	if f.Category != "" {
		q += ` AND category = ?`
		args = append(args, f.Category)
	}
	q += ` ORDER BY published_at DESC, id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.s.query(ctx, q, args...)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	posts := []BlogPost{}
	for rows.Next() {
		p, err := scanBlogPost(rows)
		if err != nil {
			return nil, dbError(err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	return posts, nil
}

func (r blogRepo) GetBySlug(ctx context.Context, slug string, includeInactive bool) (*BlogPost, error) {
	q := `SELECT ` + blogColumns + ` FROM blog_posts WHERE slug = ?`
	args := []any{slug}
	if !includeInactive {
		q += ` AND is_active = ?`
		args = append(args, true)
	}
	p, err := scanBlogPost(r.s.queryRow(ctx, q, args...))
	if err != nil {
		return nil, dbError(err)
	}
	return &p, nil
}

func (r blogRepo) GetByID(ctx context.Context, id int64) (*BlogPost, error) {
	p, err := scanBlogPost(r.s.queryRow(ctx, `SELECT `+blogColumns+` FROM blog_posts WHERE id = ?`, id))
	if err != nil {
		return nil, dbError(err)
	}
	return &p, nil
}

func (r blogRepo) Create(ctx context.Context, p *BlogPost) error {
	now := r.s.now()
	if p.PublishedAt.IsZero() {
		p.PublishedAt = now
	}
	p.PublishedAt = p.PublishedAt.UTC().Truncate(timeResolution)
	err := r.s.queryRow(ctx,
		`INSERT INTO blog_posts (title, slug, excerpt, content, category, image_url, published_at, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		p.Title, p.Slug, p.Excerpt, p.Content, p.Category, p.ImageURL, p.PublishedAt, p.IsActive, now, now,
	).Scan(&p.ID)
	if err != nil {
		return dbError(err)
	}
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

func (r blogRepo) Update(ctx context.Context, p *BlogPost) error {
	now := r.s.now()
	if p.PublishedAt.IsZero() {
		p.PublishedAt = now
	}
	p.PublishedAt = p.PublishedAt.UTC().Truncate(timeResolution)
	if err := r.s.execOne(ctx,
		`UPDATE blog_posts SET title = ?, slug = ?, excerpt = ?, content = ?, category = ?,
		 image_url = ?, published_at = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		p.Title, p.Slug, p.Excerpt, p.Content, p.Category, p.ImageURL, p.PublishedAt, p.IsActive, now, p.ID,
	); err != nil {
		return err
	}
	p.UpdatedAt = now
	return nil
}

func (r blogRepo) SetActive(ctx context.Context, id int64, active bool) error {
	return r.s.execOne(ctx, `UPDATE blog_posts SET is_active = ?, updated_at = ? WHERE id = ?`, active, r.s.now(), id)
}
