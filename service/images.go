package service

import (
	"context"

	"github.com/agrosite/agrosite/store"
)

// ImageService records metadata for uploaded images.
type ImageService struct {
	store store.Store
}

func (s *ImageService) Save(ctx context.Context, img *store.Image) error {
	return s.store.Images().Create(ctx, img)
}

func (s *ImageService) List(ctx context.Context) ([]store.Image, error) {
	return s.store.Images().List(ctx)
}

// Exists reports whether filename is already recorded.
func (s *ImageService) Exists(ctx context.Context, filename string) (bool, error) {
	_, err := s.store.Images().GetByFilename(ctx, filename)
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	}
	return false, err
}

func (s *ImageService) Delete(ctx context.Context, filename string) error {
	return s.store.Images().Delete(ctx, filename)
}
