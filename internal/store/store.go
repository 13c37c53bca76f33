package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/chloekuoi/cowork-connect/internal/models"
)

// Errors returned by DataStore implementations for rejected commands.
// Handlers translate these into HTTP statuses; everything else is a 500.
var (
	ErrSessionExists     = errors.New("an open session already exists for this match")
	ErrInvalidTransition = errors.New("session is not in a state that allows this action")
	ErrNotParticipant    = errors.New("user is not a participant")
	ErrNotInvitee        = errors.New("only the invitee can respond to a session")
	ErrNotInitiator      = errors.New("only the initiator can cancel a pending session")
	ErrDuplicate         = errors.New("already recorded")
	ErrNotFound          = errors.New("not found")
)

// DataStore defines the interface for persistent storage.
// Both PostgresStore and SQLiteStore implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Profile operations
	CreateProfile(ctx context.Context, email, passwordHash, name string) (*models.Profile, error)
	GetProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, profile *models.Profile) error

	// Work intent operations
	UpsertIntent(ctx context.Context, intent *models.WorkIntent) (*models.WorkIntent, error)
	GetIntent(ctx context.Context, userID uuid.UUID, date string) (*models.WorkIntent, error)
	ListIntentsForDate(ctx context.Context, date string, excludeUser uuid.UUID) ([]models.WorkIntent, error)

	// Swipe operations. RecordSwipe returns ErrDuplicate when the pair was
	// already swiped today; callers treat that as benign.
	RecordSwipe(ctx context.Context, swiperID, swipedID uuid.UUID, direction, date string) error
	ListSwipedIDs(ctx context.Context, swiperID uuid.UUID, date string) ([]uuid.UUID, error)
	HasRightSwipe(ctx context.Context, swiperID, swipedID uuid.UUID, date string) (bool, error)

	// Match operations. CreateMatch is idempotent for a user pair.
	CreateMatch(ctx context.Context, user1, user2 uuid.UUID) (*models.Match, error)
	GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error)
	ListMatchPreviews(ctx context.Context, userID uuid.UUID) ([]models.MatchPreview, error)
	MarkChatRead(ctx context.Context, matchID, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)

	// Message operations
	InsertMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, matchID uuid.UUID) ([]models.Message, error)

	// Session operations. The store owns the state machine: commands load
	// the row, validate the transition, and persist the result atomically.
	CreateSession(ctx context.Context, matchID, initiatorID uuid.UUID, scheduledDate string) (*models.SessionRecord, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.SessionRecord, error)
	ListSessionsForMatch(ctx context.Context, matchID uuid.UUID) ([]models.SessionRecord, error)
	RespondToSession(ctx context.Context, sessionID, userID uuid.UUID, response string) (*models.SessionRecord, *models.SessionEvent, error)
	CancelSession(ctx context.Context, sessionID, userID uuid.UUID) (*models.SessionRecord, error)
	LockInSession(ctx context.Context, sessionID, userID uuid.UUID) (*models.SessionRecord, *models.SessionEvent, error)
	ListSessionEvents(ctx context.Context, sessionIDs []uuid.UUID) ([]models.SessionEvent, error)

	// AutoCancelStaleSessions cancels open sessions whose scheduled date
	// is before the cutoff date ("YYYY-MM-DD") and returns the cancelled
	// rows so callers can fan them out to subscribers.
	AutoCancelStaleSessions(ctx context.Context, cutoffDate string) ([]models.SessionRecord, error)
}

// nowUTC returns the current time truncated to microseconds, the
// timestamp resolution shared by Postgres and SQLite.
func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
