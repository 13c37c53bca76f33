package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// pgSchema is the idempotent PostgreSQL schema.
const pgSchema = `
CREATE TABLE IF NOT EXISTS profiles (
	id UUID PRIMARY KEY,
	email TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	photo_url TEXT NOT NULL DEFAULT '',
	work_type TEXT NOT NULL DEFAULT '',
	interests TEXT NOT NULL DEFAULT '',
	bio TEXT NOT NULL DEFAULT '',
	onboarding_complete BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS work_intents (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES profiles(id),
	task_description TEXT NOT NULL,
	available_from TEXT NOT NULL,
	available_until TEXT NOT NULL,
	work_style TEXT NOT NULL,
	location_type TEXT NOT NULL,
	location_name TEXT NOT NULL DEFAULT '',
	latitude DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL,
	intent_date TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (user_id, intent_date)
);

CREATE TABLE IF NOT EXISTS swipes (
	id UUID PRIMARY KEY,
	swiper_id UUID NOT NULL REFERENCES profiles(id),
	swiped_id UUID NOT NULL REFERENCES profiles(id),
	direction TEXT NOT NULL CHECK (direction IN ('right', 'left')),
	swipe_date TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (swiper_id, swiped_id, swipe_date)
);

CREATE TABLE IF NOT EXISTS matches (
	id UUID PRIMARY KEY,
	user1_id UUID NOT NULL REFERENCES profiles(id),
	user2_id UUID NOT NULL REFERENCES profiles(id),
	matched_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	user1_last_read_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	user2_last_read_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (user1_id, user2_id)
);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	match_id UUID NOT NULL REFERENCES matches(id),
	sender_id UUID NOT NULL REFERENCES profiles(id),
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS sessions (
	id UUID PRIMARY KEY,
	match_id UUID NOT NULL REFERENCES matches(id),
	initiated_by UUID NOT NULL REFERENCES profiles(id),
	status TEXT NOT NULL CHECK (status IN ('pending', 'active', 'declined', 'completed', 'cancelled')),
	scheduled_date TEXT NOT NULL,
	accepted_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	completed_ack BOOLEAN NOT NULL DEFAULT FALSE,
	locked_by_initiator_at TIMESTAMPTZ,
	locked_by_invitee_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS session_events (
	id TEXT PRIMARY KEY,
	session_id UUID NOT NULL REFERENCES sessions(id),
	event_type TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_work_intents_date ON work_intents(intent_date);
CREATE INDEX IF NOT EXISTS idx_swipes_swiper_date ON swipes(swiper_id, swipe_date);
CREATE INDEX IF NOT EXISTS idx_messages_match_created ON messages(match_id, created_at);
CREATE INDEX IF NOT EXISTS idx_sessions_match ON sessions(match_id);
CREATE INDEX IF NOT EXISTS idx_sessions_open ON sessions(status) WHERE status IN ('pending', 'active');
CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id, created_at);
`

// RunMigrations applies the schema to the PostgreSQL database.
// The schema is idempotent, so this is safe to run at every startup.
func RunMigrations(databaseURL string) error {
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, pgSchema)
	return err
}
