package database

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

func Connect() (*sql.DB, error) {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "tutor_user")
	password := getEnv("DB_PASSWORD", "tutor_password")
	dbname := getEnv("DB_NAME", "tutor_crm")
	sslmode := getEnv("DB_SSLMODE", "disable")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func Migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id                BIGSERIAL PRIMARY KEY,
		email             VARCHAR(255) UNIQUE NOT NULL,
		name              VARCHAR(255) NOT NULL,
		phone             VARCHAR(20),
		password          VARCHAR(255) NOT NULL,
		subscription_tier VARCHAR(20) NOT NULL DEFAULT 'free',
		ai_credits_left   INT NOT NULL DEFAULT 10 CHECK (ai_credits_left >= 0),
		last_login        TIMESTAMP WITH TIME ZONE,
		created_at        TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at        TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	CREATE TABLE IF NOT EXISTS students (
		id               BIGSERIAL PRIMARY KEY,
		user_id          BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name             VARCHAR(255) NOT NULL,
		grade            VARCHAR(20),
		subject          VARCHAR(100),
		telegram_chat_id BIGINT,
		created_at       TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_students_user ON students(user_id);

	CREATE TABLE IF NOT EXISTS ai_homework (
		id                BIGSERIAL PRIMARY KEY,
		user_id           BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		student_id        BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		subject           TEXT,
		topic             TEXT,
		difficulty        VARCHAR(20) NOT NULL,
		tasks_count       INT NOT NULL,
		provider          VARCHAR(10) NOT NULL DEFAULT 'low',
		credits_spent     INT NOT NULL DEFAULT 0,
		generated_tasks   JSONB,
		validation        JSONB,
		sent_via_telegram BOOLEAN DEFAULT FALSE,
		created_at        TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_homework_user ON ai_homework(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_homework_student ON ai_homework(student_id);

	CREATE TABLE IF NOT EXISTS credit_events (
		id          BIGSERIAL PRIMARY KEY,
		user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		delta       INT NOT NULL,
		reason      VARCHAR(50) NOT NULL,
		homework_id BIGINT REFERENCES ai_homework(id) ON DELETE SET NULL,
		created_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_credit_events_user ON credit_events(user_id, created_at DESC);
	`

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
