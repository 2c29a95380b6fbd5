package store

import "context"

type adminRepo struct{ s *SQLStore }

const adminColumns = `id, username, name, role, is_active, password_hash, created_at, updated_at`

func scanAdmin(sc scanner) (Admin, error) {
	var a Admin
	err := sc.Scan(&a.ID, &a.Username, &a.Name, &a.Role, &a.IsActive, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r adminRepo) List(ctx context.Context) ([]Admin, error) {
	rows, err := r.s.query(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY id`)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	out := []Admin{}
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, dbError(err)
		}
		out = append(out, a)
	}
	return out, dbError(rows.Err())
}

func (r adminRepo) GetByID(ctx context.Context, id int64) (*Admin, error) {
	a, err := scanAdmin(r.s.queryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = ?`, id))
	if err != nil {
		return nil, dbError(err)
	}
	return &a, nil
}

func (r adminRepo) GetByUsername(ctx context.Context, username string) (*Admin, error) {
	a, err := scanAdmin(r.s.queryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE username = ?`, username))
	if err != nil {
		return nil, dbError(err)
	}
	return &a, nil
}

func (r adminRepo) Create(ctx context.Context, a *Admin) error {
	now := r.s.now()
	err := r.s.queryRow(ctx,
		`INSERT INTO admins (username, name, role, is_active, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		a.Username, a.Name, a.Role, a.IsActive, a.PasswordHash, now, now,
	).Scan(&a.ID)
	if err != nil {
		return dbError(err)
	}
	a.CreatedAt, a.UpdatedAt = now, now
	return nil
}

func (r adminRepo) Update(ctx context.Context, a *Admin) error {
	now := r.s.now()
	var err error
	if a.PasswordHash == "" {
		err = r.s.execOne(ctx,
			`UPDATE admins SET username = ?, name = ?, role = ?, is_active = ?, updated_at = ? WHERE id = ?`,
			a.Username, a.Name, a.Role, a.IsActive, now, a.ID)
	} else {
		err = r.s.execOne(ctx,
			`UPDATE admins SET username = ?, name = ?, role = ?, is_active = ?, password_hash = ?, updated_at = ? WHERE id = ?`,
			a.Username, a.Name, a.Role, a.IsActive, a.PasswordHash, now, a.ID)
	}
	if err != nil {
		return err
	}
	a.UpdatedAt = now
	return nil
}

func (r adminRepo) Delete(ctx context.Context, id int64) error {
	return r.s.execOne(ctx, `DELETE FROM admins WHERE id = ?`, id)
}

type userRepo struct{ s *SQLStore }

const userColumns = `id, username, password_hash, created_at`

func scanUser(sc scanner) (User, error) {
	var u User
	err := sc.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

func (r userRepo) Create(ctx context.Context, u *User) error {
	now := r.s.now()
	err := r.s.queryRow(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?) RETURNING id`,
		u.Username, u.PasswordHash, now,
	).Scan(&u.ID)
	if err != nil {
		return dbError(err)
	}
	u.CreatedAt = now
	return nil
}

func (r userRepo) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, dbError(err)
	}
	return &u, nil
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	u, err := scanUser(r.s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil {
		return nil, dbError(err)
	}
	return &u, nil
}

func (r userRepo) List(ctx context.Context) ([]User, error) {
	rows, err := r.s.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, dbError(err)
		}
		out = append(out, u)
	}
	return out, dbError(rows.Err())
}
