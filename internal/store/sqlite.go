package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/chloekuoi/cowork-connect/internal/models"
)

// sqliteTimeLayout is a fixed-width UTC layout so stored timestamps sort
// lexicographically in chronological order.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000"

func fmtSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(s string) time.Time {
	t, _ := time.ParseInLocation(sqliteTimeLayout, s, time.UTC)
	return t
}

func fmtNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtSQLiteTime(*t)
}

func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseSQLiteTime(s.String)
	return &t
}

// SQLiteStore handles SQLite database operations. It is the embedded
// alternative to PostgresStore for development and tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/cowork.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/cowork.db"
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist. All timestamps are TEXT
// in the fixed-width UTC layout above.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		photo_url TEXT NOT NULL DEFAULT '',
		work_type TEXT NOT NULL DEFAULT '',
		interests TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		onboarding_complete INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS work_intents (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES profiles(id),
		task_description TEXT NOT NULL,
		available_from TEXT NOT NULL,
		available_until TEXT NOT NULL,
		work_style TEXT NOT NULL,
		location_type TEXT NOT NULL,
		location_name TEXT NOT NULL DEFAULT '',
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		intent_date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (user_id, intent_date)
	);

	CREATE TABLE IF NOT EXISTS swipes (
		id TEXT PRIMARY KEY,
		swiper_id TEXT NOT NULL REFERENCES profiles(id),
		swiped_id TEXT NOT NULL REFERENCES profiles(id),
		direction TEXT NOT NULL CHECK (direction IN ('right', 'left')),
		swipe_date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE (swiper_id, swiped_id, swipe_date)
	);

	CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		user1_id TEXT NOT NULL REFERENCES profiles(id),
		user2_id TEXT NOT NULL REFERENCES profiles(id),
		matched_at TEXT NOT NULL,
		user1_last_read_at TEXT NOT NULL,
		user2_last_read_at TEXT NOT NULL,
		UNIQUE (user1_id, user2_id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		match_id TEXT NOT NULL REFERENCES matches(id),
		sender_id TEXT NOT NULL REFERENCES profiles(id),
		content TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		match_id TEXT NOT NULL REFERENCES matches(id),
		initiated_by TEXT NOT NULL REFERENCES profiles(id),
		status TEXT NOT NULL CHECK (status IN ('pending', 'active', 'declined', 'completed', 'cancelled')),
		scheduled_date TEXT NOT NULL,
		accepted_at TEXT,
		completed_at TEXT,
		completed_ack INTEGER NOT NULL DEFAULT 0,
		locked_by_initiator_at TEXT,
		locked_by_invitee_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session_events (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		event_type TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_work_intents_date ON work_intents(intent_date);
	CREATE INDEX IF NOT EXISTS idx_swipes_swiper_date ON swipes(swiper_id, swipe_date);
	CREATE INDEX IF NOT EXISTS idx_messages_match_created ON messages(match_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_match ON sessions(match_id);
	CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id, created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanLiteProfile(row sqlScanner) (*models.Profile, error) {
	p := &models.Profile{}
	var interests, createdAt, updatedAt string
	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.PasswordHash,
		&p.Name,
		&p.PhotoURL,
		&p.WorkType,
		&interests,
		&p.Bio,
		&p.OnboardingComplete,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if interests != "" {
		_ = json.Unmarshal([]byte(interests), &p.Interests)
	}
	p.CreatedAt = parseSQLiteTime(createdAt)
	p.UpdatedAt = parseSQLiteTime(updatedAt)
	return p, nil
}

// CreateProfile creates a new user profile.
func (s *SQLiteStore) CreateProfile(ctx context.Context, email, passwordHash, name string) (*models.Profile, error) {
	id := uuid.New()
	now := fmtSQLiteTime(nowUTC())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email, password_hash, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, email, passwordHash, name, now, now)
	if err != nil {
		return nil, err
	}
	return s.GetProfileByID(ctx, id)
}

// GetProfileByID retrieves a profile by ID. Returns (nil, nil) if absent.
func (s *SQLiteStore) GetProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p, err := scanLiteProfile(s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, name, photo_url, work_type, interests, bio, onboarding_complete, created_at, updated_at
		FROM profiles WHERE id = ?
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// GetProfileByEmail retrieves a profile by email. Returns (nil, nil) if absent.
func (s *SQLiteStore) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	p, err := scanLiteProfile(s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, name, photo_url, work_type, interests, bio, onboarding_complete, created_at, updated_at
		FROM profiles WHERE email = ?
	`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// UpdateProfile persists profile fields editable by the user.
func (s *SQLiteStore) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	interests, _ := json.Marshal(profile.Interests)
	profile.UpdatedAt = nowUTC()
	_, err := s.db.ExecContext(ctx, `
		UPDATE profiles
		SET name = ?, photo_url = ?, work_type = ?, interests = ?,
		    bio = ?, onboarding_complete = ?, updated_at = ?
		WHERE id = ?
	`, profile.Name, profile.PhotoURL, profile.WorkType, string(interests),
		profile.Bio, profile.OnboardingComplete, fmtSQLiteTime(profile.UpdatedAt), profile.ID)
	return err
}

func scanLiteIntent(row sqlScanner) (*models.WorkIntent, error) {
	in := &models.WorkIntent{}
	var createdAt, updatedAt string
	err := row.Scan(
		&in.ID,
		&in.UserID,
		&in.TaskDescription,
		&in.AvailableFrom,
		&in.AvailableUntil,
		&in.WorkStyle,
		&in.LocationType,
		&in.LocationName,
		&in.Latitude,
		&in.Longitude,
		&in.IntentDate,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	in.CreatedAt = parseSQLiteTime(createdAt)
	in.UpdatedAt = parseSQLiteTime(updatedAt)
	return in, nil
}

// UpsertIntent creates or replaces the user's intent for a day.
func (s *SQLiteStore) UpsertIntent(ctx context.Context, intent *models.WorkIntent) (*models.WorkIntent, error) {
	now := fmtSQLiteTime(nowUTC())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO work_intents (id, user_id, task_description, available_from, available_until,
		                          work_style, location_type, location_name, latitude, longitude,
		                          intent_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, intent_date) DO UPDATE
			SET task_description = excluded.task_description,
			    available_from = excluded.available_from,
			    available_until = excluded.available_until,
			    work_style = excluded.work_style,
			    location_type = excluded.location_type,
			    location_name = excluded.location_name,
			    latitude = excluded.latitude,
			    longitude = excluded.longitude,
			    updated_at = excluded.updated_at
	`, uuid.New(), intent.UserID, intent.TaskDescription, intent.AvailableFrom, intent.AvailableUntil,
		intent.WorkStyle, intent.LocationType, intent.LocationName, intent.Latitude, intent.Longitude,
		intent.IntentDate, now, now)
	if err != nil {
		return nil, err
	}
	return s.GetIntent(ctx, intent.UserID, intent.IntentDate)
}

// GetIntent retrieves a user's intent for a day. Returns (nil, nil) if absent.
func (s *SQLiteStore) GetIntent(ctx context.Context, userID uuid.UUID, date string) (*models.WorkIntent, error) {
	in, err := scanLiteIntent(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, task_description, available_from, available_until, work_style, location_type, location_name, latitude, longitude, intent_date, created_at, updated_at
		FROM work_intents WHERE user_id = ? AND intent_date = ?
	`, userID, date))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return in, nil
}

// ListIntentsForDate retrieves all intents for a day except the given user's.
func (s *SQLiteStore) ListIntentsForDate(ctx context.Context, date string, excludeUser uuid.UUID) ([]models.WorkIntent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, task_description, available_from, available_until, work_style, location_type, location_name, latitude, longitude, intent_date, created_at, updated_at
		FROM work_intents
		WHERE intent_date = ? AND user_id <> ?
		ORDER BY created_at
	`, date, excludeUser)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intents []models.WorkIntent
	for rows.Next() {
		in, err := scanLiteIntent(rows)
		if err != nil {
			return nil, err
		}
		intents = append(intents, *in)
	}
	return intents, rows.Err()
}

// RecordSwipe inserts a swipe; a repeat on the same pair and day returns
// ErrDuplicate.
func (s *SQLiteStore) RecordSwipe(ctx context.Context, swiperID, swipedID uuid.UUID, direction, date string) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO swipes (id, swiper_id, swiped_id, direction, swipe_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (swiper_id, swiped_id, swipe_date) DO NOTHING
	`, uuid.New(), swiperID, swipedID, direction, date, fmtSQLiteTime(nowUTC()))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDuplicate
	}
	return nil
}

// ListSwipedIDs returns the ids of users already swiped by swiperID on a day.
func (s *SQLiteStore) ListSwipedIDs(ctx context.Context, swiperID uuid.UUID, date string) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT swiped_id FROM swipes WHERE swiper_id = ? AND swipe_date = ?
	`, swiperID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// HasRightSwipe reports whether swiperID swiped right on swipedID on a day.
func (s *SQLiteStore) HasRightSwipe(ctx context.Context, swiperID, swipedID uuid.UUID, date string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM swipes
		WHERE swiper_id = ? AND swiped_id = ? AND swipe_date = ? AND direction = 'right'
	`, swiperID, swipedID, date).Scan(&count)
	return count > 0, err
}

func scanLiteMatch(row sqlScanner) (*models.Match, error) {
	m := &models.Match{}
	var matchedAt, read1, read2 string
	err := row.Scan(&m.ID, &m.User1ID, &m.User2ID, &matchedAt, &read1, &read2)
	if err != nil {
		return nil, err
	}
	m.MatchedAt = parseSQLiteTime(matchedAt)
	m.User1LastReadAt = parseSQLiteTime(read1)
	m.User2LastReadAt = parseSQLiteTime(read2)
	return m, nil
}

// CreateMatch creates a match for the pair, returning the existing row if
// the pair is already matched.
func (s *SQLiteStore) CreateMatch(ctx context.Context, user1, user2 uuid.UUID) (*models.Match, error) {
	u1, u2 := orderPair(user1, user2)
	now := fmtSQLiteTime(nowUTC())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matches (id, user1_id, user2_id, matched_at, user1_last_read_at, user2_last_read_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user1_id, user2_id) DO NOTHING
	`, uuid.New(), u1, u2, now, now, now)
	if err != nil {
		return nil, err
	}
	return scanLiteMatch(s.db.QueryRowContext(ctx, `
		SELECT id, user1_id, user2_id, matched_at, user1_last_read_at, user2_last_read_at
		FROM matches WHERE user1_id = ? AND user2_id = ?
	`, u1, u2))
}

// GetMatch retrieves a match by ID. Returns (nil, nil) if absent.
func (s *SQLiteStore) GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	m, err := scanLiteMatch(s.db.QueryRowContext(ctx, `
		SELECT id, user1_id, user2_id, matched_at, user1_last_read_at, user2_last_read_at
		FROM matches WHERE id = ?
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// ListMatchPreviews returns the user's matches with the other participant,
// the latest message, and the unread count, newest activity first.
func (s *SQLiteStore) ListMatchPreviews(ctx context.Context, userID uuid.UUID) ([]models.MatchPreview, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, p.id, p.name, p.photo_url,
		       COALESCE((SELECT content FROM messages WHERE match_id = m.id ORDER BY created_at DESC LIMIT 1), ''),
		       (SELECT created_at FROM messages WHERE match_id = m.id ORDER BY created_at DESC LIMIT 1),
		       (SELECT COUNT(*) FROM messages msg
		        WHERE msg.match_id = m.id
		          AND msg.sender_id <> ?
		          AND msg.created_at > CASE WHEN m.user1_id = ?
		                                    THEN m.user1_last_read_at
		                                    ELSE m.user2_last_read_at END)
		FROM matches m
		JOIN profiles p
		  ON p.id = CASE WHEN m.user1_id = ? THEN m.user2_id ELSE m.user1_id END
		WHERE m.user1_id = ? OR m.user2_id = ?
		ORDER BY COALESCE((SELECT created_at FROM messages WHERE match_id = m.id ORDER BY created_at DESC LIMIT 1), m.matched_at) DESC
	`, userID, userID, userID, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var previews []models.MatchPreview
	for rows.Next() {
		var pv models.MatchPreview
		var lastAt sql.NullString
		if err := rows.Scan(
			&pv.MatchID,
			&pv.OtherUser.ID,
			&pv.OtherUser.Name,
			&pv.OtherUser.PhotoURL,
			&pv.LastMessage,
			&lastAt,
			&pv.UnreadCount,
		); err != nil {
			return nil, err
		}
		pv.LastMessageAt = parseNullableTime(lastAt)
		previews = append(previews, pv)
	}
	return previews, rows.Err()
}

// MarkChatRead advances the caller's last-read marker on a match.
func (s *SQLiteStore) MarkChatRead(ctx context.Context, matchID, userID uuid.UUID) error {
	now := fmtSQLiteTime(nowUTC())
	_, err := s.db.ExecContext(ctx, `
		UPDATE matches SET
			user1_last_read_at = CASE WHEN user1_id = ? THEN ? ELSE user1_last_read_at END,
			user2_last_read_at = CASE WHEN user2_id = ? THEN ? ELSE user2_last_read_at END
		WHERE id = ? AND (user1_id = ? OR user2_id = ?)
	`, userID, now, userID, now, matchID, userID, userID)
	return err
}

// UnreadCount returns the total unread messages across the user's matches.
func (s *SQLiteStore) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM messages msg
		JOIN matches m ON m.id = msg.match_id
		WHERE (m.user1_id = ? OR m.user2_id = ?)
		  AND msg.sender_id <> ?
		  AND msg.created_at > CASE WHEN m.user1_id = ?
		                            THEN m.user1_last_read_at
		                            ELSE m.user2_last_read_at END
	`, userID, userID, userID, userID).Scan(&count)
	return count, err
}

// InsertMessage persists a message row.
func (s *SQLiteStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, match_id, sender_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.ID, msg.MatchID, msg.SenderID, msg.Content, fmtSQLiteTime(msg.CreatedAt))
	return err
}

// ListMessages returns all messages for a match, oldest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, matchID uuid.UUID) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, match_id, sender_id, content, created_at
		FROM messages
		WHERE match_id = ?
		ORDER BY created_at
	`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var createdAt string
		if err := rows.Scan(&m.ID, &m.MatchID, &m.SenderID, &m.Content, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt = parseSQLiteTime(createdAt)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

const liteSessionColumns = `id, match_id, initiated_by, status, scheduled_date, accepted_at, completed_at, completed_ack, locked_by_initiator_at, locked_by_invitee_at, created_at, updated_at`

func scanLiteSession(row sqlScanner) (*models.SessionRecord, error) {
	sess := &models.SessionRecord{}
	var acceptedAt, completedAt, lockedInit, lockedInv sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(
		&sess.ID,
		&sess.MatchID,
		&sess.InitiatedBy,
		&sess.Status,
		&sess.ScheduledDate,
		&acceptedAt,
		&completedAt,
		&sess.CompletedAck,
		&lockedInit,
		&lockedInv,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	sess.AcceptedAt = parseNullableTime(acceptedAt)
	sess.CompletedAt = parseNullableTime(completedAt)
	sess.LockedByInitiatorAt = parseNullableTime(lockedInit)
	sess.LockedByInviteeAt = parseNullableTime(lockedInv)
	sess.CreatedAt = parseSQLiteTime(createdAt)
	sess.UpdatedAt = parseSQLiteTime(updatedAt)
	return sess, nil
}

// CreateSession creates a pending session for a match, rejecting with
// ErrSessionExists while another pending/active session exists.
func (s *SQLiteStore) CreateSession(ctx context.Context, matchID, initiatorID uuid.UUID, scheduledDate string) (*models.SessionRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := scanLiteMatch(tx.QueryRowContext(ctx, `
		SELECT id, user1_id, user2_id, matched_at, user1_last_read_at, user2_last_read_at
		FROM matches WHERE id = ?
	`, matchID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !match.Involves(initiatorID) {
		return nil, ErrNotParticipant
	}

	var openID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM sessions
		WHERE match_id = ? AND status IN ('pending', 'active')
		LIMIT 1
	`, matchID).Scan(&openID)
	if err == nil {
		return nil, ErrSessionExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	id := uuid.New()
	now := fmtSQLiteTime(nowUTC())
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, match_id, initiated_by, status, scheduled_date, created_at, updated_at)
		VALUES (?, ?, ?, 'pending', ?, ?, ?)
	`, id, matchID, initiatorID, scheduledDate, now, now)
	if err != nil {
		return nil, err
	}

	sess, err := scanLiteSession(tx.QueryRowContext(ctx, `
		SELECT `+liteSessionColumns+` FROM sessions WHERE id = ?
	`, id))
	if err != nil {
		return nil, err
	}

	return sess, tx.Commit()
}

// GetSession retrieves a session by ID. Returns (nil, nil) if absent.
func (s *SQLiteStore) GetSession(ctx context.Context, id uuid.UUID) (*models.SessionRecord, error) {
	sess, err := scanLiteSession(s.db.QueryRowContext(ctx, `
		SELECT `+liteSessionColumns+` FROM sessions WHERE id = ?
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return sess, nil
}

// ListSessionsForMatch returns all sessions for a match, oldest first.
func (s *SQLiteStore) ListSessionsForMatch(ctx context.Context, matchID uuid.UUID) ([]models.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+liteSessionColumns+` FROM sessions
		WHERE match_id = ?
		ORDER BY created_at
	`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.SessionRecord
	for rows.Next() {
		sess, err := scanLiteSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// withSession mirrors PostgresStore.withSession over database/sql.
func (s *SQLiteStore) withSession(ctx context.Context, sessionID, userID uuid.UUID,
	apply func(sess *models.SessionRecord, isInitiator bool) (*models.SessionEvent, error),
) (*models.SessionRecord, *models.SessionEvent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	sess, err := scanLiteSession(tx.QueryRowContext(ctx, `
		SELECT `+liteSessionColumns+` FROM sessions WHERE id = ?
	`, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	match, err := scanLiteMatch(tx.QueryRowContext(ctx, `
		SELECT id, user1_id, user2_id, matched_at, user1_last_read_at, user2_last_read_at
		FROM matches WHERE id = ?
	`, sess.MatchID))
	if err != nil {
		return nil, nil, err
	}

	isInitiator, err := sessionRole(sess, match, userID)
	if err != nil {
		return nil, nil, err
	}

	event, err := apply(sess, isInitiator)
	if err != nil {
		return nil, nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions
		SET status = ?, accepted_at = ?, completed_at = ?, completed_ack = ?,
		    locked_by_initiator_at = ?, locked_by_invitee_at = ?, updated_at = ?
		WHERE id = ?
	`, sess.Status, fmtNullableTime(sess.AcceptedAt), fmtNullableTime(sess.CompletedAt), sess.CompletedAck,
		fmtNullableTime(sess.LockedByInitiatorAt), fmtNullableTime(sess.LockedByInviteeAt),
		fmtSQLiteTime(sess.UpdatedAt), sess.ID)
	if err != nil {
		return nil, nil, err
	}

	if event != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO session_events (id, session_id, event_type, message, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, event.ID, event.SessionID, event.EventType, event.Message, fmtSQLiteTime(event.CreatedAt))
		if err != nil {
			return nil, nil, err
		}
	}

	return sess, event, tx.Commit()
}

// RespondToSession applies an accept or decline by the invitee.
func (s *SQLiteStore) RespondToSession(ctx context.Context, sessionID, userID uuid.UUID, response string) (*models.SessionRecord, *models.SessionEvent, error) {
	return s.withSession(ctx, sessionID, userID,
		func(sess *models.SessionRecord, isInitiator bool) (*models.SessionEvent, error) {
			return applyRespond(sess, isInitiator, response, nowUTC())
		})
}

// CancelSession cancels a pending (initiator) or active (either) session.
func (s *SQLiteStore) CancelSession(ctx context.Context, sessionID, userID uuid.UUID) (*models.SessionRecord, error) {
	sess, _, err := s.withSession(ctx, sessionID, userID,
		func(sess *models.SessionRecord, isInitiator bool) (*models.SessionEvent, error) {
			return nil, applyCancel(sess, isInitiator, nowUTC())
		})
	return sess, err
}

// LockInSession records the caller's lock-in; the second lock-in
// completes the session.
func (s *SQLiteStore) LockInSession(ctx context.Context, sessionID, userID uuid.UUID) (*models.SessionRecord, *models.SessionEvent, error) {
	return s.withSession(ctx, sessionID, userID,
		func(sess *models.SessionRecord, isInitiator bool) (*models.SessionEvent, error) {
			return applyLockIn(sess, isInitiator, nowUTC())
		})
}

// ListSessionEvents returns events for the given sessions, oldest first.
func (s *SQLiteStore) ListSessionEvents(ctx context.Context, sessionIDs []uuid.UUID) ([]models.SessionEvent, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}

	query := `SELECT id, session_id, event_type, message, created_at FROM session_events WHERE session_id IN (?`
	args := []any{sessionIDs[0]}
	for _, id := range sessionIDs[1:] {
		query += ", ?"
		args = append(args, id)
	}
	query += `) ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.SessionEvent
	for rows.Next() {
		var ev models.SessionEvent
		var createdAt string
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.EventType, &ev.Message, &createdAt); err != nil {
			return nil, err
		}
		ev.CreatedAt = parseSQLiteTime(createdAt)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// AutoCancelStaleSessions cancels open sessions scheduled before the
// cutoff date and returns the cancelled rows.
func (s *SQLiteStore) AutoCancelStaleSessions(ctx context.Context, cutoffDate string) ([]models.SessionRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT `+liteSessionColumns+` FROM sessions
		WHERE status IN ('pending', 'active') AND scheduled_date < ?
	`, cutoffDate)
	if err != nil {
		return nil, err
	}

	var stale []models.SessionRecord
	for rows.Next() {
		sess, err := scanLiteSession(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		stale = append(stale, *sess)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	now := nowUTC()
	for i := range stale {
		stale[i].Status = models.SessionCancelled
		stale[i].UpdatedAt = now
		if _, err := tx.ExecContext(ctx, `
			UPDATE sessions SET status = 'cancelled', updated_at = ? WHERE id = ?
		`, fmtSQLiteTime(now), stale[i].ID); err != nil {
			return nil, err
		}
	}

	return stale, tx.Commit()
}
