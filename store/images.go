package store

import "context"

type imageRepo struct{ s *SQLStore }

const imageColumns = `id, filename, original_name, width, height, size, uploaded_at`

func scanImage(sc scanner) (Image, error) {
	var img Image
	err := sc.Scan(&img.ID, &img.Filename, &img.OriginalName, &img.Width, &img.Height, &img.Size, &img.UploadedAt)
	return img, err
}

func (r imageRepo) Create(ctx context.Context, img *Image) error {
	if img.UploadedAt.IsZero() {
		img.UploadedAt = r.s.now()
	}
	img.UploadedAt = img.UploadedAt.UTC().Truncate(timeResolution)
	err := r.s.queryRow(ctx,
		`INSERT INTO images (filename, original_name, width, height, size, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		img.Filename, img.OriginalName, img.Width, img.Height, img.Size, img.UploadedAt,
	).Scan(&img.ID)
	return dbError(err)
}

// List returns images newest first.
func (r imageRepo) List(ctx context.Context) ([]Image, error) {
	rows, err := r.s.query(ctx, `SELECT `+imageColumns+` FROM images ORDER BY uploaded_at DESC, id DESC`)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	out := []Image{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, dbError(err)
		}
		out = append(out, img)
	}
	return out, dbError(rows.Err())
}

func (r imageRepo) GetByFilename(ctx context.Context, filename string) (*Image, error) {
	img, err := scanImage(r.s.queryRow(ctx, `SELECT `+imageColumns+` FROM images WHERE filename = ?`, filename))
	if err != nil {
		return nil, dbError(err)
	}
	return &img, nil
}

func (r imageRepo) Delete(ctx context.Context, filename string) error {
	return r.s.execOne(ctx, `DELETE FROM images WHERE filename = ?`, filename)
}
