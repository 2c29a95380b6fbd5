package store

import (
	"context"
	"encoding/json"
	"fmt"
)

type productRepo struct{ s *SQLStore }

const productColumns = `id, name, slug, category, description, benefits, image_url, is_active, created_at, updated_at`

func scanProduct(sc scanner) (Product, error) {
	var (
		p        Product
		benefits string
	)
	if err := sc.Scan(&p.ID, &p.Name, &p.Slug, &p.Category, &p.Description, &benefits,
		&p.ImageURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	list, err := decodeList(benefits)
	if err != nil {
		return Product{}, fmt.Errorf("decode benefits of product %d: %w", p.ID, err)
	}
	p.Benefits = list
	return p, nil
}

// List returns products ordered by id. Inactive rows are skipped unless the
// filter asks for them.
func (r productRepo) List(ctx context.Context, f ProductFilter) ([]Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	var args []any
	if !f.IncludeInactive {
		q += ` AND is_active = ?`
		args = append(args, true)
	}
	if f.Category != "" {
		q += ` AND category = ?`
		args = append(args, f.Category)
	}
	q += ` ORDER BY id`

	rows, err := r.s.query(ctx, q, args...)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, dbError(err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	return products, nil
}

func (r productRepo) GetBySlug(ctx context.Context, slug string, includeInactive bool) (*Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE slug = ?`
	args := []any{slug}
	if !includeInactive {
		q += ` AND is_active = ?`
		args = append(args, true)
	}
	p, err := scanProduct(r.s.queryRow(ctx, q, args...))
	if err != nil {
		return nil, dbError(err)
	}
	return &p, nil
}

// GetByID returns a product regardless of its active flag.
func (r productRepo) GetByID(ctx context.Context, id int64) (*Product, error) {
	p, err := scanProduct(r.s.queryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if err != nil {
		return nil, dbError(err)
	}
	return &p, nil
}

func (r productRepo) Create(ctx context.Context, p *Product) error {
	benefits, err := encodeList(p.Benefits)
	if err != nil {
		return err
	}
	now := r.s.now()
	err = r.s.queryRow(ctx,
		`INSERT INTO products (name, slug, category, description, benefits, image_url, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		p.Name, p.Slug, p.Category, p.Description, benefits, p.ImageURL, p.IsActive, now, now,
	).Scan(&p.ID)
	if err != nil {
		return dbError(err)
	}
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

// Update replaces every editable column of the product with id p.ID.
func (r productRepo) Update(ctx context.Context, p *Product) error {
	benefits, err := encodeList(p.Benefits)
	if err != nil {
		return err
	}
	now := r.s.now()
	if err := r.s.execOne(ctx,
		`UPDATE products SET name = ?, slug = ?, category = ?, description = ?, benefits = ?,
		 image_url = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.Slug, p.Category, p.Description, benefits, p.ImageURL, p.IsActive, now, p.ID,
	); err != nil {
		return err
	}
	p.UpdatedAt = now
	return nil
}

func (r productRepo) SetActive(ctx context.Context, id int64, active bool) error {
	return r.s.execOne(ctx, `UPDATE products SET is_active = ?, updated_at = ? WHERE id = ?`, active, r.s.now(), id)
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeList(s string) ([]string, error) {
	list := []string{}
	if s == "" {
		return list, nil
	}
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil, err
	}
	return list, nil
}
