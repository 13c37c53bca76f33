package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chloekuoi/cowork-connect/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const profileColumns = `id, email, password_hash, name, photo_url, work_type, interests, bio, onboarding_complete, created_at, updated_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	p := &models.Profile{}
	var interests string
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
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if interests != "" {
		_ = json.Unmarshal([]byte(interests), &p.Interests)
	}
	return p, nil
}

// CreateProfile creates a new user profile.
func (s *PostgresStore) CreateProfile(ctx context.Context, email, passwordHash, name string) (*models.Profile, error) {
	now := nowUTC()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO profiles (id, email, password_hash, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING `+profileColumns+`
	`, uuid.New(), email, passwordHash, name, now)
	return scanProfile(row)
}

// GetProfileByID retrieves a profile by ID. Returns (nil, nil) if absent.
func (s *PostgresStore) GetProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx, `
		SELECT `+profileColumns+` FROM profiles WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// GetProfileByEmail retrieves a profile by email. Returns (nil, nil) if absent.
func (s *PostgresStore) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx, `
		SELECT `+profileColumns+` FROM profiles WHERE email = $1
	`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// UpdateProfile persists profile fields editable by the user.
func (s *PostgresStore) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	interests, _ := json.Marshal(profile.Interests)
	profile.UpdatedAt = nowUTC()
	_, err := s.pool.Exec(ctx, `
		UPDATE profiles
		SET name = $2, photo_url = $3, work_type = $4, interests = $5,
		    bio = $6, onboarding_complete = $7, updated_at = $8
		WHERE id = $1
	`, profile.ID, profile.Name, profile.PhotoURL, profile.WorkType,
		string(interests), profile.Bio, profile.OnboardingComplete, profile.UpdatedAt)
	return err
}

const intentColumns = `id, user_id, task_description, available_from, available_until, work_style, location_type, location_name, latitude, longitude, intent_date, created_at, updated_at`

func scanIntent(row pgx.Row) (*models.WorkIntent, error) {
	in := &models.WorkIntent{}
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
		&in.CreatedAt,
		&in.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return in, nil
}

// UpsertIntent creates or replaces the user's intent for a day.
func (s *PostgresStore) UpsertIntent(ctx context.Context, intent *models.WorkIntent) (*models.WorkIntent, error) {
	now := nowUTC()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO work_intents (id, user_id, task_description, available_from, available_until,
		                          work_style, location_type, location_name, latitude, longitude,
		                          intent_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		ON CONFLICT (user_id, intent_date) DO UPDATE
			SET task_description = EXCLUDED.task_description,
			    available_from = EXCLUDED.available_from,
			    available_until = EXCLUDED.available_until,
			    work_style = EXCLUDED.work_style,
			    location_type = EXCLUDED.location_type,
			    location_name = EXCLUDED.location_name,
			    latitude = EXCLUDED.latitude,
			    longitude = EXCLUDED.longitude,
			    updated_at = EXCLUDED.updated_at
		RETURNING `+intentColumns+`
	`, uuid.New(), intent.UserID, intent.TaskDescription, intent.AvailableFrom, intent.AvailableUntil,
		intent.WorkStyle, intent.LocationType, intent.LocationName, intent.Latitude, intent.Longitude,
		intent.IntentDate, now)
	return scanIntent(row)
}

// GetIntent retrieves a user's intent for a day. Returns (nil, nil) if absent.
func (s *PostgresStore) GetIntent(ctx context.Context, userID uuid.UUID, date string) (*models.WorkIntent, error) {
	in, err := scanIntent(s.pool.QueryRow(ctx, `
		SELECT `+intentColumns+` FROM work_intents
		WHERE user_id = $1 AND intent_date = $2
	`, userID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return in, nil
}

// ListIntentsForDate retrieves all intents for a day except the given user's.
func (s *PostgresStore) ListIntentsForDate(ctx context.Context, date string, excludeUser uuid.UUID) ([]models.WorkIntent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+intentColumns+` FROM work_intents
		WHERE intent_date = $1 AND user_id <> $2
		ORDER BY created_at
	`, date, excludeUser)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intents []models.WorkIntent
	for rows.Next() {
		in, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		intents = append(intents, *in)
	}
	return intents, rows.Err()
}

// RecordSwipe inserts a swipe. A repeat swipe on the same pair for the
// same day returns ErrDuplicate.
func (s *PostgresStore) RecordSwipe(ctx context.Context, swiperID, swipedID uuid.UUID, direction, date string) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO swipes (id, swiper_id, swiped_id, direction, swipe_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (swiper_id, swiped_id, swipe_date) DO NOTHING
	`, uuid.New(), swiperID, swipedID, direction, date, nowUTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

// ListSwipedIDs returns the ids of users already swiped by swiperID on a day.
func (s *PostgresStore) ListSwipedIDs(ctx context.Context, swiperID uuid.UUID, date string) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT swiped_id FROM swipes WHERE swiper_id = $1 AND swipe_date = $2
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
func (s *PostgresStore) HasRightSwipe(ctx context.Context, swiperID, swipedID uuid.UUID, date string) (bool, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM swipes
		WHERE swiper_id = $1 AND swiped_id = $2 AND swipe_date = $3 AND direction = 'right'
	`, swiperID, swipedID, date).Scan(&count)
	return count > 0, err
}

const matchColumns = `id, user1_id, user2_id, matched_at, user1_last_read_at, user2_last_read_at`

func scanMatch(row pgx.Row) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(&m.ID, &m.User1ID, &m.User2ID, &m.MatchedAt, &m.User1LastReadAt, &m.User2LastReadAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// orderPair normalizes a user pair so a match row is unique regardless of
// which side swiped last.
func orderPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}

// CreateMatch creates a match for the pair, returning the existing row if
// the pair is already matched.
func (s *PostgresStore) CreateMatch(ctx context.Context, user1, user2 uuid.UUID) (*models.Match, error) {
	u1, u2 := orderPair(user1, user2)
	now := nowUTC()
	m, err := scanMatch(s.pool.QueryRow(ctx, `
		INSERT INTO matches (id, user1_id, user2_id, matched_at, user1_last_read_at, user2_last_read_at)
		VALUES ($1, $2, $3, $4, $4, $4)
		ON CONFLICT (user1_id, user2_id) DO NOTHING
		RETURNING `+matchColumns+`
	`, uuid.New(), u1, u2, now))
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Conflict: the pair is already matched.
	return scanMatch(s.pool.QueryRow(ctx, `
		SELECT `+matchColumns+` FROM matches WHERE user1_id = $1 AND user2_id = $2
	`, u1, u2))
}

// GetMatch retrieves a match by ID. Returns (nil, nil) if absent.
func (s *PostgresStore) GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	m, err := scanMatch(s.pool.QueryRow(ctx, `
		SELECT `+matchColumns+` FROM matches WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// ListMatchPreviews returns the user's matches with the other participant,
// the latest message, and the unread count, newest activity first.
func (s *PostgresStore) ListMatchPreviews(ctx context.Context, userID uuid.UUID) ([]models.MatchPreview, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, p.id, p.name, p.photo_url,
		       COALESCE(lm.content, ''), lm.created_at,
		       (SELECT COUNT(*) FROM messages msg
		        WHERE msg.match_id = m.id
		          AND msg.sender_id <> $1
		          AND msg.created_at > CASE WHEN m.user1_id = $1
		                                    THEN m.user1_last_read_at
		                                    ELSE m.user2_last_read_at END)
		FROM matches m
		JOIN profiles p
		  ON p.id = CASE WHEN m.user1_id = $1 THEN m.user2_id ELSE m.user1_id END
		LEFT JOIN LATERAL (
			SELECT content, created_at FROM messages
			WHERE match_id = m.id
			ORDER BY created_at DESC
			LIMIT 1
		) lm ON TRUE
		WHERE m.user1_id = $1 OR m.user2_id = $1
		ORDER BY COALESCE(lm.created_at, m.matched_at) DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var previews []models.MatchPreview
	for rows.Next() {
		var pv models.MatchPreview
		if err := rows.Scan(
			&pv.MatchID,
			&pv.OtherUser.ID,
			&pv.OtherUser.Name,
			&pv.OtherUser.PhotoURL,
			&pv.LastMessage,
			&pv.LastMessageAt,
			&pv.UnreadCount,
		); err != nil {
			return nil, err
		}
		previews = append(previews, pv)
	}
	return previews, rows.Err()
}

// MarkChatRead advances the caller's last-read marker on a match.
func (s *PostgresStore) MarkChatRead(ctx context.Context, matchID, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE matches SET
			user1_last_read_at = CASE WHEN user1_id = $2 THEN $3 ELSE user1_last_read_at END,
			user2_last_read_at = CASE WHEN user2_id = $2 THEN $3 ELSE user2_last_read_at END
		WHERE id = $1 AND (user1_id = $2 OR user2_id = $2)
	`, matchID, userID, nowUTC())
	return err
}

// UnreadCount returns the total unread messages across the user's matches.
func (s *PostgresStore) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM messages msg
		JOIN matches m ON m.id = msg.match_id
		WHERE (m.user1_id = $1 OR m.user2_id = $1)
		  AND msg.sender_id <> $1
		  AND msg.created_at > CASE WHEN m.user1_id = $1
		                            THEN m.user1_last_read_at
		                            ELSE m.user2_last_read_at END
	`, userID).Scan(&count)
	return count, err
}

// InsertMessage persists a message row.
func (s *PostgresStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, match_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, msg.ID, msg.MatchID, msg.SenderID, msg.Content, msg.CreatedAt)
	return err
}

// ListMessages returns all messages for a match, oldest first.
func (s *PostgresStore) ListMessages(ctx context.Context, matchID uuid.UUID) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, match_id, sender_id, content, created_at
		FROM messages
		WHERE match_id = $1
		ORDER BY created_at
	`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.MatchID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

const sessionColumns = `id, match_id, initiated_by, status, scheduled_date, accepted_at, completed_at, completed_ack, locked_by_initiator_at, locked_by_invitee_at, created_at, updated_at`

func scanPgSession(row pgx.Row) (*models.SessionRecord, error) {
	sess := &models.SessionRecord{}
	err := row.Scan(
		&sess.ID,
		&sess.MatchID,
		&sess.InitiatedBy,
		&sess.Status,
		&sess.ScheduledDate,
		&sess.AcceptedAt,
		&sess.CompletedAt,
		&sess.CompletedAck,
		&sess.LockedByInitiatorAt,
		&sess.LockedByInviteeAt,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// CreateSession creates a pending session for a match. Rejects with
// ErrSessionExists while another pending/active session exists for the
// match; the check and the insert share a transaction so two racing
// invites cannot both land.
func (s *PostgresStore) CreateSession(ctx context.Context, matchID, initiatorID uuid.UUID, scheduledDate string) (*models.SessionRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	match, err := scanMatch(tx.QueryRow(ctx, `
		SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE
	`, matchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !match.Involves(initiatorID) {
		return nil, ErrNotParticipant
	}

	var openID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT id FROM sessions
		WHERE match_id = $1 AND status IN ('pending', 'active')
		LIMIT 1
	`, matchID).Scan(&openID)
	if err == nil {
		return nil, ErrSessionExists
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	now := nowUTC()
	sess, err := scanPgSession(tx.QueryRow(ctx, `
		INSERT INTO sessions (id, match_id, initiated_by, status, scheduled_date, created_at, updated_at)
		VALUES ($1, $2, $3, 'pending', $4, $5, $5)
		RETURNING `+sessionColumns+`
	`, uuid.New(), matchID, initiatorID, scheduledDate, now))
	if err != nil {
		return nil, err
	}

	return sess, tx.Commit(ctx)
}

// GetSession retrieves a session by ID. Returns (nil, nil) if absent.
func (s *PostgresStore) GetSession(ctx context.Context, id uuid.UUID) (*models.SessionRecord, error) {
	sess, err := scanPgSession(s.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return sess, nil
}

// ListSessionsForMatch returns all sessions for a match, oldest first.
func (s *PostgresStore) ListSessionsForMatch(ctx context.Context, matchID uuid.UUID) ([]models.SessionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE match_id = $1
		ORDER BY created_at
	`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.SessionRecord
	for rows.Next() {
		sess, err := scanPgSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// withSession runs a transition against a session row inside a
// transaction: load row + match with a row lock, apply, persist, append
// the produced event if any.
func (s *PostgresStore) withSession(ctx context.Context, sessionID, userID uuid.UUID,
	apply func(sess *models.SessionRecord, isInitiator bool) (*models.SessionEvent, error),
) (*models.SessionRecord, *models.SessionEvent, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	sess, err := scanPgSession(tx.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE id = $1 FOR UPDATE
	`, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	match, err := scanMatch(tx.QueryRow(ctx, `
		SELECT `+matchColumns+` FROM matches WHERE id = $1
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

	_, err = tx.Exec(ctx, `
		UPDATE sessions
		SET status = $2, accepted_at = $3, completed_at = $4, completed_ack = $5,
		    locked_by_initiator_at = $6, locked_by_invitee_at = $7, updated_at = $8
		WHERE id = $1
	`, sess.ID, sess.Status, sess.AcceptedAt, sess.CompletedAt, sess.CompletedAck,
		sess.LockedByInitiatorAt, sess.LockedByInviteeAt, sess.UpdatedAt)
	if err != nil {
		return nil, nil, err
	}

	if event != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO session_events (id, session_id, event_type, message, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, event.ID, event.SessionID, event.EventType, event.Message, event.CreatedAt)
		if err != nil {
			return nil, nil, err
		}
	}

	return sess, event, tx.Commit(ctx)
}

// RespondToSession applies an accept or decline by the invitee.
func (s *PostgresStore) RespondToSession(ctx context.Context, sessionID, userID uuid.UUID, response string) (*models.SessionRecord, *models.SessionEvent, error) {
	return s.withSession(ctx, sessionID, userID,
		func(sess *models.SessionRecord, isInitiator bool) (*models.SessionEvent, error) {
			return applyRespond(sess, isInitiator, response, nowUTC())
		})
}

// CancelSession cancels a pending (initiator) or active (either) session.
func (s *PostgresStore) CancelSession(ctx context.Context, sessionID, userID uuid.UUID) (*models.SessionRecord, error) {
	sess, _, err := s.withSession(ctx, sessionID, userID,
		func(sess *models.SessionRecord, isInitiator bool) (*models.SessionEvent, error) {
			return nil, applyCancel(sess, isInitiator, nowUTC())
		})
	return sess, err
}

// LockInSession records the caller's lock-in; the second lock-in
// completes the session.
func (s *PostgresStore) LockInSession(ctx context.Context, sessionID, userID uuid.UUID) (*models.SessionRecord, *models.SessionEvent, error) {
	return s.withSession(ctx, sessionID, userID,
		func(sess *models.SessionRecord, isInitiator bool) (*models.SessionEvent, error) {
			return applyLockIn(sess, isInitiator, nowUTC())
		})
}

// ListSessionEvents returns events for the given sessions, oldest first.
func (s *PostgresStore) ListSessionEvents(ctx context.Context, sessionIDs []uuid.UUID) ([]models.SessionEvent, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, event_type, message, created_at
		FROM session_events
		WHERE session_id = ANY($1)
		ORDER BY created_at
	`, sessionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.SessionEvent
	for rows.Next() {
		var ev models.SessionEvent
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.EventType, &ev.Message, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// AutoCancelStaleSessions cancels open sessions scheduled before the
// cutoff date and returns the cancelled rows.
func (s *PostgresStore) AutoCancelStaleSessions(ctx context.Context, cutoffDate string) ([]models.SessionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE sessions
		SET status = 'cancelled', updated_at = $2
		WHERE status IN ('pending', 'active') AND scheduled_date < $1
		RETURNING `+sessionColumns+`
	`, cutoffDate, nowUTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cancelled []models.SessionRecord
	for rows.Next() {
		sess, err := scanPgSession(rows)
		if err != nil {
			return nil, err
		}
		cancelled = append(cancelled, *sess)
	}
	return cancelled, rows.Err()
}
