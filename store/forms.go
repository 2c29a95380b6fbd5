package store

import "context"

type contactRepo struct{ s *SQLStore }

const contactColumns = `id, name, email, phone, subject, message, product_id, created_at`

func scanContact(sc scanner) (ContactMessage, error) {
	var m ContactMessage
	err := sc.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Subject, &m.Message, &m.ProductID, &m.CreatedAt)
	return m, err
}

// Create stores the message as submitted; ProductID is not checked.
func (r contactRepo) Create(ctx context.Context, m *ContactMessage) error {
	now := r.s.now()
	err := r.s.queryRow(ctx,
		`INSERT INTO contact_messages (name, email, phone, subject, message, product_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		m.Name, m.Email, m.Phone, m.Subject, m.Message, m.ProductID, now,
	).Scan(&m.ID)
	if err != nil {
		return dbError(err)
	}
	m.CreatedAt = now
	return nil
}

func (r contactRepo) GetByID(ctx context.Context, id int64) (*ContactMessage, error) {
	m, err := scanContact(r.s.queryRow(ctx, `SELECT `+contactColumns+` FROM contact_messages WHERE id = ?`, id))
	if err != nil {
		return nil, dbError(err)
	}
	return &m, nil
}

func (r contactRepo) List(ctx context.Context) ([]ContactMessage, error) {
	rows, err := r.s.query(ctx, `SELECT `+contactColumns+` FROM contact_messages ORDER BY id DESC`)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	out := []ContactMessage{}
	for rows.Next() {
		m, err := scanContact(rows)
		if err != nil {
			return nil, dbError(err)
		}
		out = append(out, m)
	}
	return out, dbError(rows.Err())
}

type jobRepo struct{ s *SQLStore }

const jobColumns = `id, name, email, area_of_interest, resume_url, message, created_at`

func scanJob(sc scanner) (JobApplication, error) {
	var a JobApplication
	err := sc.Scan(&a.ID, &a.Name, &a.Email, &a.AreaOfInterest, &a.ResumeURL, &a.Message, &a.CreatedAt)
	return a, err
}

func (r jobRepo) Create(ctx context.Context, a *JobApplication) error {
	now := r.s.now()
	err := r.s.queryRow(ctx,
		`INSERT INTO job_applications (name, email, area_of_interest, resume_url, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		a.Name, a.Email, a.AreaOfInterest, a.ResumeURL, a.Message, now,
	).Scan(&a.ID)
	if err != nil {
		return dbError(err)
	}
	a.CreatedAt = now
	return nil
}

func (r jobRepo) GetByID(ctx context.Context, id int64) (*JobApplication, error) {
	a, err := scanJob(r.s.queryRow(ctx, `SELECT `+jobColumns+` FROM job_applications WHERE id = ?`, id))
	if err != nil {
		return nil, dbError(err)
	}
	return &a, nil
}

func (r jobRepo) List(ctx context.Context) ([]JobApplication, error) {
	rows, err := r.s.query(ctx, `SELECT `+jobColumns+` FROM job_applications ORDER BY id DESC`)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	out := []JobApplication{}
	for rows.Next() {
		a, err := scanJob(rows)
		if err != nil {
			return nil, dbError(err)
		}
		out = append(out, a)
	}
	return out, dbError(rows.Err())
}
