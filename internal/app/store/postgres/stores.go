package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stagechat/internal/app/identity"
	"stagechat/internal/app/room"
)

// IdentityStore implements identity.Store over the users table.
type IdentityStore struct {
	pool *pgxpool.Pool
}

// NewIdentityStore constructs an IdentityStore on the given pool.
func NewIdentityStore(pool *pgxpool.Pool) *IdentityStore {
	return &IdentityStore{pool: pool}
}

// GetByNickname implements identity.Store.
func (s *IdentityStore) GetByNickname(ctx context.Context, nickname string) (identity.Identity, error) {
	var id identity.Identity

	err := s.pool.QueryRow(ctx,
		`SELECT nickname, password, created_at FROM users WHERE nickname = $1`,
		nickname,
	).Scan(&id.Nickname, &id.Credential, &id.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return identity.Identity{}, identity.ErrNotFound
	}
	if err != nil {
		return identity.Identity{}, err
	}
	return id, nil
}

// Create implements identity.Store. The primary key on nickname is the
// tie-break for concurrent first logins.
func (s *IdentityStore) Create(ctx context.Context, id identity.Identity) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (nickname, password) VALUES ($1, $2)`,
		id.Nickname, id.Credential,
	)
	if isUniqueViolation(err) {
		return identity.ErrNicknameTaken
	}
	return err
}

// ChatStore implements room.Directory and room.MessageLog over the rooms
// and messages tables.
type ChatStore struct {
	pool *pgxpool.Pool
}

// NewChatStore constructs a ChatStore on the given pool.
func NewChatStore(pool *pgxpool.Pool) *ChatStore {
	return &ChatStore{pool: pool}
}

// Create implements room.Directory.
func (s *ChatStore) Create(ctx context.Context, title string) (room.Room, error) {
	var r room.Room

	err := s.pool.QueryRow(ctx,
		`INSERT INTO rooms (title) VALUES ($1) RETURNING id, title, created_at`,
		title,
	).Scan(&r.ID, &r.Title, &r.CreatedAt)

	if err != nil {
		return room.Room{}, err
	}
	return r, nil
}

// List implements room.Directory.
func (s *ChatStore) List(ctx context.Context) ([]room.Room, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, created_at FROM rooms ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []room.Room
	for rows.Next() {
		var r room.Room
		if err := rows.Scan(&r.ID, &r.Title, &r.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// Get implements room.Directory.
func (s *ChatStore) Get(ctx context.Context, id int64) (room.Room, error) {
	var r room.Room

	err := s.pool.QueryRow(ctx,
		`SELECT id, title, created_at FROM rooms WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.Title, &r.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return room.Room{}, room.ErrNotFound
	}
	if err != nil {
		return room.Room{}, err
	}
	return r, nil
}

// Append implements room.MessageLog. The id and timestamp come from the
// bigserial sequence and the insert default; the foreign key on room_id
// rejects appends into rooms that never existed.
func (s *ChatStore) Append(ctx context.Context, roomID int64, username string, content string) (room.Message, error) {
	var m room.Message

	err := s.pool.QueryRow(ctx,
		`INSERT INTO messages (room_id, nickname, content)
		 VALUES ($1, $2, $3)
		 RETURNING id, room_id, nickname, content, created_at`,
		roomID, username, content,
	).Scan(&m.ID, &m.RoomID, &m.Username, &m.Content, &m.Timestamp)

	if isForeignKeyViolation(err) {
		return room.Message{}, room.ErrNotFound
	}
	if err != nil {
		return room.Message{}, err
	}
	return m, nil
}

// History implements room.MessageLog, oldest first.
func (s *ChatStore) History(ctx context.Context, roomID int64) ([]room.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, room_id, nickname, content, created_at
		 FROM messages WHERE room_id = $1
		 ORDER BY created_at, id`,
		roomID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []room.Message
	for rows.Next() {
		var m room.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.Username, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Remove implements room.MessageLog.
func (s *ChatStore) Remove(ctx context.Context, messageID int64) (room.Message, error) {
	var m room.Message

	err := s.pool.QueryRow(ctx,
		`DELETE FROM messages WHERE id = $1
		 RETURNING id, room_id, nickname, content, created_at`,
		messageID,
	).Scan(&m.ID, &m.RoomID, &m.Username, &m.Content, &m.Timestamp)

	if errors.Is(err, pgx.ErrNoRows) {
		return room.Message{}, room.ErrMessageNotFound
	}
	if err != nil {
		return room.Message{}, err
	}
	return m, nil
}

// ProfileRegistry implements profile.Registry over the profiles table.
type ProfileRegistry struct {
	pool *pgxpool.Pool
}

// NewProfileRegistry constructs a ProfileRegistry on the given pool.
func NewProfileRegistry(pool *pgxpool.Pool) *ProfileRegistry {
	return &ProfileRegistry{pool: pool}
}

// Get implements profile.Registry.
func (p *ProfileRegistry) Get(ctx context.Context, nickname string) (string, error) {
	var image string

	err := p.pool.QueryRow(ctx,
		`SELECT image FROM profiles WHERE nickname = $1`,
		nickname,
	).Scan(&image)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return image, nil
}

// Set implements profile.Registry.
func (p *ProfileRegistry) Set(ctx context.Context, nickname string, image string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO profiles (nickname, image) VALUES ($1, $2)
		 ON CONFLICT (nickname) DO UPDATE SET image = EXCLUDED.image, updated_at = now()`,
		nickname, image,
	)
	return err
}

// SetAll implements profile.Registry.
func (p *ProfileRegistry) SetAll(ctx context.Context, profiles map[string]string) error {
	for nickname, image := range profiles {
		if err := p.Set(ctx, nickname, image); err != nil {
			return err
		}
	}
	return nil
}
