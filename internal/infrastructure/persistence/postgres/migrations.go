package postgres

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_profiles",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_progress_overlays",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_verification_records",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
		{
			Version: 4,
			Name:    "create_usage_and_solution_chat",
			UpSQL:   migration004Up,
			DownSQL: migration004Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE PROFILES
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create profiles table
-- Version: 001

CREATE TABLE IF NOT EXISTS profiles (
    user_id UUID PRIMARY KEY,
    nationality VARCHAR(80) NOT NULL DEFAULT '',
    current_city VARCHAR(120) NOT NULL DEFAULT '',
    target_city VARCHAR(120) NOT NULL DEFAULT '',
    university VARCHAR(200) NOT NULL DEFAULT '',
    objectives TEXT[] NOT NULL DEFAULT '{}',
    is_in_france BOOLEAN,
    status VARCHAR(20) NOT NULL DEFAULT 'explorateur',
    is_verified BOOLEAN NOT NULL DEFAULT FALSE,
    university_email VARCHAR(255),
    is_premium BOOLEAN NOT NULL DEFAULT FALSE,
    integration_progress SMALLINT NOT NULL DEFAULT 0,
    admin_notes TEXT NOT NULL DEFAULT '',
    monthly_budget_eur INTEGER,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT profiles_status_check CHECK (status IN ('explorateur', 'temoin')),
    CONSTRAINT profiles_progress_check CHECK (integration_progress BETWEEN 0 AND 100),
    CONSTRAINT profiles_objectives_check CHECK (cardinality(objectives) <= 3)
);

-- One verified owner per university email
CREATE UNIQUE INDEX IF NOT EXISTS idx_profiles_university_email
    ON profiles(lower(university_email))
    WHERE is_verified AND university_email IS NOT NULL;
`

const migration001Down = `
DROP TABLE IF EXISTS profiles;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE PROGRESS OVERLAYS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Sparse checklist and document overlays
-- Version: 002
-- Only toggled entries are stored; the catalog lives in code.

CREATE TABLE IF NOT EXISTS checklist_progress (
    user_id UUID NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
    phase_id VARCHAR(40) NOT NULL,
    item_id VARCHAR(60) NOT NULL,
    done BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, phase_id, item_id)
);

CREATE TABLE IF NOT EXISTS document_progress (
    user_id UUID NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
    document_id VARCHAR(60) NOT NULL,
    owned BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, document_id)
);
`

const migration002Down = `
DROP TABLE IF EXISTS document_progress;
DROP TABLE IF EXISTS checklist_progress;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE VERIFICATION RECORDS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: University email verification attempts
-- Version: 003
-- token_hash is BLAKE2b-256 of the emailed token; the token itself is never stored.

CREATE TABLE IF NOT EXISTS verification_records (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
    email VARCHAR(255) NOT NULL,
    token_hash CHAR(64),
    outcome VARCHAR(20) NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMP WITH TIME ZONE,
    verified_at TIMESTAMP WITH TIME ZONE,

    CONSTRAINT verification_outcome_check
        CHECK (outcome IN ('pending', 'sent', 'duplicate', 'failed', 'verified'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_verification_token_hash
    ON verification_records(token_hash) WHERE token_hash IS NOT NULL;

-- Trailing-window attempt counting
CREATE INDEX IF NOT EXISTS idx_verification_user_created
    ON verification_records(user_id, created_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS verification_records;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: USAGE COUNTERS AND SOLUTION CHAT
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Free message counters and solution chat messages
-- Version: 004

CREATE TABLE IF NOT EXISTS usage_counters (
    user_id UUID NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
    feature VARCHAR(40) NOT NULL,
    scope VARCHAR(80) NOT NULL,
    used INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, feature, scope),
    CONSTRAINT usage_used_check CHECK (used >= 0)
);

CREATE INDEX IF NOT EXISTS idx_usage_feature_updated
    ON usage_counters(feature, updated_at);

CREATE TABLE IF NOT EXISTS solution_chat_messages (
    id UUID PRIMARY KEY,
    conversation_id UUID NOT NULL,
    sender_id UUID NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
    content TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT solution_chat_content_check CHECK (length(content) BETWEEN 1 AND 4000)
);

CREATE INDEX IF NOT EXISTS idx_solution_chat_conversation
    ON solution_chat_messages(conversation_id, created_at);
`

const migration004Down = `
DROP TABLE IF EXISTS solution_chat_messages;
DROP TABLE IF EXISTS usage_counters;
`
