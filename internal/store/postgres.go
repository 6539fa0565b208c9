package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Tx is the subset of store operations available inside WithTx.
type Tx interface {
	PageByTitle(ctx context.Context, projectID int64, title string) (Page, error)
	ComponentByCompID(ctx context.Context, pageID int64, compID string) (Component, error)
	UpdateComponent(ctx context.Context, component Component) error
}

type PostgresStore struct {
	db DB
	q  querier
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

// WithTx runs fn inside a transaction. The transaction commits only when fn
// returns nil; any error rolls back every write fn made.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&PostgresStore{db: s.db, q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	var user User
	err := s.q.QueryRow(ctx, `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, email, password_hash, created_at
	`, email, passwordHash).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", translate(err))
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.q.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at FROM users WHERE email=$1
	`, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("get user by email: %w", translate(err))
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID int64) (User, error) {
	var user User
	err := s.q.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at FROM users WHERE id=$1
	`, userID).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", translate(err))
	}
	return user, nil
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash string, user User, expiresAt time.Time) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, user.ID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.q.Exec(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	var user User
	err := s.q.QueryRow(ctx, `
		SELECT u.id, u.email, u.password_hash, u.created_at
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`, tokenHash).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("lookup refresh session: %w", translate(err))
	}
	return user, nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

func (s *PostgresStore) CreateProject(ctx context.Context, userID int64, name string) (Project, error) {
	var item Project
	err := s.q.QueryRow(ctx, `
		INSERT INTO projects (user_id, name)
		VALUES ($1, $2)
		RETURNING id, user_id, name, created_at
	`, userID, name).Scan(&item.ID, &item.UserID, &item.Name, &item.CreatedAt)
	if err != nil {
		return Project{}, fmt.Errorf("insert project: %w", translate(err))
	}
	return item, nil
}

func (s *PostgresStore) ListProjects(ctx context.Context, userID int64) ([]Project, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, user_id, name, created_at
		FROM projects
		WHERE user_id=$1
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	items := make([]Project, 0)
	for rows.Next() {
		var item Project
		if err := rows.Scan(&item.ID, &item.UserID, &item.Name, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetProject(ctx context.Context, projectID int64) (Project, error) {
	var item Project
	err := s.q.QueryRow(ctx, `
		SELECT id, user_id, name, created_at FROM projects WHERE id=$1
	`, projectID).Scan(&item.ID, &item.UserID, &item.Name, &item.CreatedAt)
	if err != nil {
		return Project{}, fmt.Errorf("get project: %w", translate(err))
	}
	return item, nil
}

// DeleteProject removes the project with its pages and components.
func (s *PostgresStore) DeleteProject(ctx context.Context, projectID int64) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM projects WHERE id=$1`, projectID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete project: %w", ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CreatePage(ctx context.Context, projectID int64, title string) (Page, error) {
	var item Page
	err := s.q.QueryRow(ctx, `
		INSERT INTO pages (project_id, title)
		VALUES ($1, $2)
		RETURNING id, project_id, title, created_at
	`, projectID, title).Scan(&item.ID, &item.ProjectID, &item.Title, &item.CreatedAt)
	if err != nil {
		return Page{}, fmt.Errorf("insert page: %w", translate(err))
	}
	return item, nil
}

func (s *PostgresStore) ListPages(ctx context.Context, projectID int64) ([]Page, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, project_id, title, created_at
		FROM pages
		WHERE project_id=$1
		ORDER BY id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	items := make([]Page, 0)
	for rows.Next() {
		var item Page
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.Title, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetPage(ctx context.Context, pageID int64) (Page, error) {
	var item Page
	err := s.q.QueryRow(ctx, `
		SELECT id, project_id, title, created_at FROM pages WHERE id=$1
	`, pageID).Scan(&item.ID, &item.ProjectID, &item.Title, &item.CreatedAt)
	if err != nil {
		return Page{}, fmt.Errorf("get page: %w", translate(err))
	}
	return item, nil
}

// PageByTitle resolves a page by title within a project. Titles are not
// unique, so two matches yield ErrAmbiguous.
func (s *PostgresStore) PageByTitle(ctx context.Context, projectID int64, title string) (Page, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, project_id, title, created_at
		FROM pages
		WHERE project_id=$1 AND title=$2
		ORDER BY id
		LIMIT 2
	`, projectID, title)
	if err != nil {
		return Page{}, fmt.Errorf("page by title: %w", err)
	}
	defer rows.Close()

	var matches []Page
	for rows.Next() {
		var item Page
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.Title, &item.CreatedAt); err != nil {
			return Page{}, fmt.Errorf("scan page: %w", err)
		}
		matches = append(matches, item)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("iterate pages: %w", err)
	}
	switch len(matches) {
	case 0:
		return Page{}, fmt.Errorf("page by title %q: %w", title, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return Page{}, fmt.Errorf("page by title %q: %w", title, ErrAmbiguous)
	}
}

func (s *PostgresStore) DeletePage(ctx context.Context, pageID int64) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM pages WHERE id=$1`, pageID)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete page: %w", ErrNotFound)
	}
	return nil
}

const componentColumns = `c.id, c.page_id, c.comp_id, c.parent, c.left_px, c.top_px, c.width_px, c.height_px, c.secondary_state, c.created_at, c.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanComponent(row scanner, extra ...any) (Component, error) {
	var item Component
	var state []byte
	dest := []any{
		&item.ID,
		&item.PageID,
		&item.CompID,
		&item.Parent,
		&item.Left,
		&item.Top,
		&item.Width,
		&item.Height,
		&state,
		&item.CreatedAt,
		&item.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Component{}, err
	}
	item.SecondaryState = map[string]any{}
	if len(state) > 0 {
		if err := json.Unmarshal(state, &item.SecondaryState); err != nil {
			return Component{}, fmt.Errorf("decode secondary state: %w", err)
		}
	}
	return item, nil
}

func encodeState(state map[string]any) ([]byte, error) {
	if state == nil {
		state = map[string]any{}
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode secondary state: %w", err)
	}
	return raw, nil
}

func (s *PostgresStore) CreateComponent(ctx context.Context, item Component) (Component, error) {
	state, err := encodeState(item.SecondaryState)
	if err != nil {
		return Component{}, err
	}
	row := s.q.QueryRow(ctx, `
		INSERT INTO components AS c (page_id, comp_id, parent, left_px, top_px, width_px, height_px, secondary_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+componentColumns, item.PageID, item.CompID, item.Parent, item.Left, item.Top, item.Width, item.Height, state)
	created, err := scanComponent(row)
	if err != nil {
		return Component{}, fmt.Errorf("insert component: %w", translate(err))
	}
	return created, nil
}

// GetComponent loads a component by row id, restricted to the given page.
func (s *PostgresStore) GetComponent(ctx context.Context, pageID, componentID int64) (Component, error) {
	row := s.q.QueryRow(ctx, `SELECT `+componentColumns+` FROM components c WHERE c.id=$1 AND c.page_id=$2`, componentID, pageID)
	item, err := scanComponent(row)
	if err != nil {
		return Component{}, fmt.Errorf("get component: %w", translate(err))
	}
	return item, nil
}

// ComponentByCompID resolves a client id within one page. More than one
// match yields ErrAmbiguous.
func (s *PostgresStore) ComponentByCompID(ctx context.Context, pageID int64, compID string) (Component, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+componentColumns+`
		FROM components c
		WHERE c.page_id=$1 AND c.comp_id=$2
		ORDER BY c.id
		LIMIT 2
	`, pageID, compID)
	if err != nil {
		return Component{}, fmt.Errorf("component by comp id: %w", err)
	}
	defer rows.Close()

	var matches []Component
	for rows.Next() {
		item, err := scanComponent(rows)
		if err != nil {
			return Component{}, fmt.Errorf("scan component: %w", err)
		}
		matches = append(matches, item)
	}
	if err := rows.Err(); err != nil {
		return Component{}, fmt.Errorf("iterate components: %w", err)
	}
	switch len(matches) {
	case 0:
		return Component{}, fmt.Errorf("component %q: %w", compID, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return Component{}, fmt.Errorf("component %q: %w", compID, ErrAmbiguous)
	}
}

// UpdateComponent overwrites the modelled columns and the secondary state of
// the row identified by component.ID.
func (s *PostgresStore) UpdateComponent(ctx context.Context, item Component) error {
	state, err := encodeState(item.SecondaryState)
	if err != nil {
		return err
	}
	tag, err := s.q.Exec(ctx, `
		UPDATE components
		SET comp_id=$2, parent=$3, left_px=$4, top_px=$5, width_px=$6, height_px=$7, secondary_state=$8, updated_at=NOW()
		WHERE id=$1
	`, item.ID, item.CompID, item.Parent, item.Left, item.Top, item.Width, item.Height, state)
	if err != nil {
		return fmt.Errorf("update component: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update component: %w", ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteComponent(ctx context.Context, componentID int64) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM components WHERE id=$1`, componentID)
	if err != nil {
		return fmt.Errorf("delete component: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete component: %w", ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ListPageComponents(ctx context.Context, pageID int64) ([]Component, error) {
	rows, err := s.q.Query(ctx, `SELECT `+componentColumns+` FROM components c WHERE c.page_id=$1 ORDER BY c.id`, pageID)
	if err != nil {
		return nil, fmt.Errorf("list page components: %w", err)
	}
	defer rows.Close()

	items := make([]Component, 0)
	for rows.Next() {
		item, err := scanComponent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate components: %w", err)
	}
	return items, nil
}

// ListProjectComponents returns every component of the project paired with
// its page title, ordered by page then component.
func (s *PostgresStore) ListProjectComponents(ctx context.Context, projectID int64) ([]ProjectComponent, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+componentColumns+`, p.title
		FROM components c
		JOIN pages p ON p.id = c.page_id
		WHERE p.project_id=$1
		ORDER BY p.id, c.id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project components: %w", err)
	}
	defer rows.Close()

	items := make([]ProjectComponent, 0)
	for rows.Next() {
		var title string
		item, err := scanComponent(rows, &title)
		if err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		items = append(items, ProjectComponent{Component: item, PageTitle: title})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate components: %w", err)
	}
	return items, nil
}
