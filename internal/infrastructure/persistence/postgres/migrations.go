package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migration is one forward-only schema step.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator applies pending migrations in version order. Each migration and
// its schema_migrations row are written in one transaction.
type Migrator struct {
	conn       *Connection
	migrations []Migration
}

// NewMigrator creates a migrator for the embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{conn: conn, migrations: GetMigrations()}
}

// Migrate applies every migration not yet recorded in schema_migrations.
func (m *Migrator) Migrate(ctx context.Context) error {
	_, err := m.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("%w: create schema_migrations: %v", ErrMigrationFailed, err)
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if applied[mig.Version] {
			continue
		}
		err := m.conn.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
				mig.Version, mig.Name,
			)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d (%s): %v", ErrMigrationFailed, mig.Version, mig.Name, err)
		}
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]bool, error) {
	rows, err := m.conn.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("failed to scan applied migrations: %w", err)
	}

	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_roster", SQL: migration001Up},
		{Version: 2, Name: "create_grades_attendance", SQL: migration002Up},
		{Version: 3, Name: "create_groups", SQL: migration003Up},
		{Version: 4, Name: "create_reward_draws", SQL: migration004Up},
		{Version: 5, Name: "group_leader_is_member", SQL: migration005Up},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: STUDENTS AND ACTIVITIES
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS students (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name VARCHAR(100) NOT NULL,
    email VARCHAR(254) NOT NULL DEFAULT '',
    enrollment VARCHAR(20) NOT NULL UNIQUE,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT students_name_not_blank CHECK (btrim(name) <> '')
);

CREATE INDEX IF NOT EXISTS idx_students_active_name ON students(name) WHERE active;

CREATE TABLE IF NOT EXISTS activities (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name VARCHAR(200) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    due_date DATE,
    max_value NUMERIC(4,1) NOT NULL DEFAULT 10.0,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT activities_max_value_range CHECK (max_value > 0 AND max_value <= 10)
);

CREATE INDEX IF NOT EXISTS idx_activities_created_at ON activities(created_at DESC);

CREATE OR REPLACE FUNCTION update_updated_at_column()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = NOW();
    RETURN NEW;
END;
$$ language 'plpgsql';

DROP TRIGGER IF EXISTS update_students_updated_at ON students;
CREATE TRIGGER update_students_updated_at
    BEFORE UPDATE ON students
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();

DROP TRIGGER IF EXISTS update_activities_updated_at ON activities;
CREATE TRIGGER update_activities_updated_at
    BEFORE UPDATE ON activities
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`


// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: GRADES, GRADE HISTORY, ATTENDANCE
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS grades (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    activity_id UUID NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
    value NUMERIC(4,1) NOT NULL,
    notes TEXT NOT NULL DEFAULT '',
    posted_by VARCHAR(100) NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT grades_one_per_activity UNIQUE (student_id, activity_id),
    CONSTRAINT grades_value_non_negative CHECK (value >= 0)
);

CREATE INDEX IF NOT EXISTS idx_grades_activity ON grades(activity_id);

-- The upper bound depends on the activity, so it is checked by trigger.
CREATE OR REPLACE FUNCTION check_grade_max_value()
RETURNS TRIGGER AS $$
DECLARE
    max_allowed NUMERIC(4,1);
BEGIN
    SELECT max_value INTO max_allowed FROM activities WHERE id = NEW.activity_id;
    IF NEW.value > max_allowed THEN
        RAISE EXCEPTION 'grade % exceeds activity max %', NEW.value, max_allowed
            USING ERRCODE = 'check_violation';
    END IF;
    RETURN NEW;
END;
$$ language 'plpgsql';

DROP TRIGGER IF EXISTS check_grades_max_value ON grades;
CREATE TRIGGER check_grades_max_value
    BEFORE INSERT OR UPDATE OF value ON grades
    FOR EACH ROW
    EXECUTE FUNCTION check_grade_max_value();

DROP TRIGGER IF EXISTS update_grades_updated_at ON grades;
CREATE TRIGGER update_grades_updated_at
    BEFORE UPDATE ON grades
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();

CREATE TABLE IF NOT EXISTS grade_changes (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    grade_id UUID NOT NULL REFERENCES grades(id) ON DELETE CASCADE,
    old_value NUMERIC(4,1) NOT NULL,
    new_value NUMERIC(4,1) NOT NULL,
    reason VARCHAR(200) NOT NULL DEFAULT '',
    changed_by VARCHAR(100) NOT NULL DEFAULT '',
    changed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_grade_changes_grade ON grade_changes(grade_id, changed_at DESC);

CREATE TABLE IF NOT EXISTS attendance (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    day DATE NOT NULL,
    present BOOLEAN NOT NULL DEFAULT TRUE,
    notes VARCHAR(200) NOT NULL DEFAULT '',
    posted_by VARCHAR(100) NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT attendance_one_per_day UNIQUE (student_id, day)
);

CREATE INDEX IF NOT EXISTS idx_attendance_day ON attendance(day DESC);
CREATE INDEX IF NOT EXISTS idx_attendance_present ON attendance(present) WHERE present;
`


// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: STUDY GROUPS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS study_groups (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name VARCHAR(100) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    leader_id UUID REFERENCES students(id) ON DELETE SET NULL,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_by VARCHAR(100) NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id UUID NOT NULL REFERENCES study_groups(id) ON DELETE CASCADE,
    student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    added_by VARCHAR(100) NOT NULL DEFAULT '',
    added_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (group_id, student_id)
);

CREATE INDEX IF NOT EXISTS idx_group_members_student ON group_members(student_id);

DROP TRIGGER IF EXISTS update_study_groups_updated_at ON study_groups;
CREATE TRIGGER update_study_groups_updated_at
    BEFORE UPDATE ON study_groups
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`


// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: REWARD DRAWS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
CREATE TABLE IF NOT EXISTS reward_draws (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    category VARCHAR(20) NOT NULL,
    roll SMALLINT NOT NULL,
    drawn_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    redeemed BOOLEAN NOT NULL DEFAULT FALSE,
    redeemed_at TIMESTAMP WITH TIME ZONE,
    redeemed_by VARCHAR(100) NOT NULL DEFAULT '',

    CONSTRAINT reward_draws_category CHECK (category IN ('common_snack_a', 'common_snack_b', 'voucher', 'cash_small', 'cash_large')),
    CONSTRAINT reward_draws_redeemed_at CHECK (redeemed = (redeemed_at IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS idx_reward_draws_drawn_at ON reward_draws(drawn_at DESC);
CREATE INDEX IF NOT EXISTS idx_reward_draws_pending ON reward_draws(drawn_at DESC) WHERE NOT redeemed;

-- Draws are append-only: only the redemption columns may change, once.
CREATE OR REPLACE FUNCTION guard_reward_draw_update()
RETURNS TRIGGER AS $$
BEGIN
    IF NEW.student_id <> OLD.student_id OR NEW.category <> OLD.category
       OR NEW.roll <> OLD.roll OR NEW.drawn_at <> OLD.drawn_at THEN
        RAISE EXCEPTION 'reward draw % is immutable', OLD.id
            USING ERRCODE = 'check_violation';
    END IF;
    IF OLD.redeemed THEN
        RAISE EXCEPTION 'reward draw % already redeemed', OLD.id
            USING ERRCODE = 'check_violation';
    END IF;
    RETURN NEW;
END;
$$ language 'plpgsql';

DROP TRIGGER IF EXISTS guard_reward_draws_update ON reward_draws;
CREATE TRIGGER guard_reward_draws_update
    BEFORE UPDATE ON reward_draws
    FOR EACH ROW
    EXECUTE FUNCTION guard_reward_draw_update();
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 005: GROUP LEADER MUST BE A MEMBER
// ══════════════════════════════════════════════════════════════════════════════

const migration005Up = `
UPDATE study_groups g SET leader_id = NULL
WHERE leader_id IS NOT NULL
  AND NOT EXISTS (
    SELECT 1 FROM group_members m WHERE m.group_id = g.id AND m.student_id = g.leader_id
  );

DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM pg_constraint WHERE conname = 'study_groups_leader_is_member'
    ) THEN
        ALTER TABLE study_groups
            ADD CONSTRAINT study_groups_leader_is_member
            FOREIGN KEY (id, leader_id) REFERENCES group_members(group_id, student_id);
    END IF;
END $$;
`
