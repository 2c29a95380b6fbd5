package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/agrosite/agrosite/store"
)

// ProductService serves the product catalog.
type ProductService struct {
	store store.Store
}

// List returns active products, optionally restricted to category.
func (s *ProductService) List(ctx context.Context, category string) ([]store.Product, error) {
	return s.store.Products().List(ctx, store.ProductFilter{Category: category})
}

// ListAll returns every product including inactive ones.
func (s *ProductService) ListAll(ctx context.Context) ([]store.Product, error) {
	return s.store.Products().List(ctx, store.ProductFilter{IncludeInactive: true})
}

// Get returns the active product with slug.
func (s *ProductService) Get(ctx context.Context, slug string) (*store.Product, error) {
	return s.store.Products().GetBySlug(ctx, slug, false)
}

// GetByID returns a product regardless of its active flag.
func (s *ProductService) GetByID(ctx context.Context, id int64) (*store.Product, error) {
	return s.store.Products().GetByID(ctx, id)
}

// Create inserts p. A slug already held by any product, active or not, is a
// conflict.
func (s *ProductService) Create(ctx context.Context, p *store.Product) error {
	if err := checkProductSlug(ctx, s.store, p.Slug, 0); err != nil {
		return err
	}
	return s.store.Products().Create(ctx, p)
}

// Update replaces the product with id p.ID.
func (s *ProductService) Update(ctx context.Context, p *store.Product) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		old, err := tx.Products().GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		if old.Slug != p.Slug {
			if err := checkProductSlug(ctx, tx, p.Slug, p.ID); err != nil {
				return err
			}
		}
		p.CreatedAt = old.CreatedAt
		return tx.Products().Update(ctx, p)
	})
}

// Delete hides the product from public reads. The row is kept.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	return s.store.Products().SetActive(ctx, id, false)
}

// Restore makes a soft-deleted product visible again.
func (s *ProductService) Restore(ctx context.Context, id int64) error {
	return s.store.Products().SetActive(ctx, id, true)
}

func checkProductSlug(ctx context.Context, st store.Store, slug string, except int64) error {
	ex, err := st.Products().GetBySlug(ctx, slug, true)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return err
	case ex.ID != except:
		return fmt.Errorf("%w: product slug %q", store.ErrConflict, slug)
	}
	return nil
}

// BlogService serves blog posts.
type BlogService struct {
	store store.Store
}

// List returns active posts newest first. limit applies after category; zero
// means unlimited.
func (s *BlogService) List(ctx context.Context, category string, limit int) ([]store.BlogPost, error) {
	return s.store.BlogPosts().List(ctx, store.BlogFilter{Category: category, Limit: limit})
}

func (s *BlogService) ListAll(ctx context.Context) ([]store.BlogPost, error) {
	return s.store.BlogPosts().List(ctx, store.BlogFilter{IncludeInactive: true})
}

func (s *BlogService) Get(ctx context.Context, slug string) (*store.BlogPost, error) {
	return s.store.BlogPosts().GetBySlug(ctx, slug, false)
}

func (s *BlogService) GetByID(ctx context.Context, id int64) (*store.BlogPost, error) {
	return s.store.BlogPosts().GetByID(ctx, id)
}

func (s *BlogService) Create(ctx context.Context, p *store.BlogPost) error {
	if err := checkBlogSlug(ctx, s.store, p.Slug, 0); err != nil {
		return err
	}
	return s.store.BlogPosts().Create(ctx, p)
}

func (s *BlogService) Update(ctx context.Context, p *store.BlogPost) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		old, err := tx.BlogPosts().GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		if old.Slug != p.Slug {
			if err := checkBlogSlug(ctx, tx, p.Slug, p.ID); err != nil {
				return err
			}
		}
		p.CreatedAt = old.CreatedAt
		return tx.BlogPosts().Update(ctx, p)
	})
}

func (s *BlogService) Delete(ctx context.Context, id int64) error {
	return s.store.BlogPosts().SetActive(ctx, id, false)
}

func (s *BlogService) Restore(ctx context.Context, id int64) error {
	return s.store.BlogPosts().SetActive(ctx, id, true)
}

func checkBlogSlug(ctx context.Context, st store.Store, slug string, except int64) error {
	ex, err := st.BlogPosts().GetBySlug(ctx, slug, true)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return err
	case ex.ID != except:
		return fmt.Errorf("%w: blog slug %q", store.ErrConflict, slug)
	}
	return nil
}
