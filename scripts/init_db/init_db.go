package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found — using system environment variables")
	}

	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		dbGetEnv("DB_USER", "pettrack_user"),
		dbGetEnv("DB_PASSWORD", "pettrack_password"),
		dbGetEnv("DB_HOST", "localhost"),
		dbGetEnv("DB_PORT", "5432"),
		dbGetEnv("DB_NAME", "pettrack"),
	)

	ctx := context.Background()

	fmt.Println("Connecting to PostgreSQL...")
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		log.Fatalf("Connection failed: %v\n\nMake sure PostgreSQL is running:\n  docker-compose up -d postgres", err)
	}
	defer conn.Close(ctx)
	fmt.Println("✓ Connected")

	step1_users_table(ctx, conn)
	step2_pets_table(ctx, conn)
	step3_locations_table(ctx, conn)
	step4_zones_and_alerts(ctx, conn)
	step5_indexes(ctx, conn)
	step6_verify(ctx, conn)

	fmt.Println("\n✅ Database initialised successfully")
	fmt.Println("   Run next: go run scripts/seed/seed.go")
}

// ─────────────────────────────────────────────────────────────
// Step 1 — users table
// ─────────────────────────────────────────────────────────────
func step1_users_table(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 1: users table ─────────────────────────")

	// Account rows are owned by the external auth system; the tracker only
	// needs the ID for ownership checks.
	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS users (
			id          BIGSERIAL    PRIMARY KEY,
			name        TEXT         NOT NULL,
			email       TEXT         NOT NULL UNIQUE,
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);
	`, "users table created")
}

// ─────────────────────────────────────────────────────────────
// Step 2 — pets table
// ─────────────────────────────────────────────────────────────
func step2_pets_table(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 2: pets table ──────────────────────────")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS pets (
			id             BIGSERIAL    PRIMARY KEY,
			user_id        BIGINT       NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name           TEXT         NOT NULL,
			species        TEXT         NOT NULL DEFAULT '',
			breed          TEXT         NOT NULL DEFAULT '',
			photo_url      TEXT         NOT NULL DEFAULT '',

			-- Device credential: globally unique, issued once, never rotated
			device_id      TEXT         NOT NULL UNIQUE,
			api_key        TEXT         NOT NULL UNIQUE,

			-- Liveness, written only by telemetry ingestion
			is_online      BOOLEAN      NOT NULL DEFAULT FALSE,
			battery_level  INTEGER      NOT NULL DEFAULT 100,
			last_seen      TIMESTAMPTZ,

			created_at     TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);
	`, "pets table created")
}

// ─────────────────────────────────────────────────────────────
// Step 3 — locations table
// ─────────────────────────────────────────────────────────────
func step3_locations_table(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 3: locations table ─────────────────────")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS locations (
			-- BIGSERIAL IDs are monotonic with insertion order; the live
			-- feed watermark and "latest" tie-breaking depend on that.
			id          BIGSERIAL        PRIMARY KEY,
			pet_id      BIGINT           NOT NULL REFERENCES pets(id) ON DELETE CASCADE,

			latitude    DOUBLE PRECISION NOT NULL,
			longitude   DOUBLE PRECISION NOT NULL,

			-- Optional auxiliary telemetry
			altitude    DOUBLE PRECISION,
			speed       DOUBLE PRECISION,
			satellites  INTEGER,
			hdop        DOUBLE PRECISION,

			timestamp   TIMESTAMPTZ      NOT NULL DEFAULT NOW()
		);
	`, "locations table created")
}

// ─────────────────────────────────────────────────────────────
// Step 4 — geofence_zones and alerts tables
// ─────────────────────────────────────────────────────────────
func step4_zones_and_alerts(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 4: geofence_zones, alerts ──────────────")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS geofence_zones (
			id             BIGSERIAL        PRIMARY KEY,
			pet_id         BIGINT           NOT NULL REFERENCES pets(id) ON DELETE CASCADE,
			name           TEXT             NOT NULL,
			center_lat     DOUBLE PRECISION NOT NULL,
			center_lng     DOUBLE PRECISION NOT NULL,
			radius_meters  DOUBLE PRECISION NOT NULL,
			is_active      BOOLEAN          NOT NULL DEFAULT TRUE,
			created_at     TIMESTAMPTZ      NOT NULL DEFAULT NOW(),

			CONSTRAINT chk_radius_positive CHECK (radius_meters > 0)
		);
	`, "geofence_zones table created")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS alerts (
			id          BIGSERIAL    PRIMARY KEY,
			pet_id      BIGINT       NOT NULL REFERENCES pets(id) ON DELETE CASCADE,
			alert_type  TEXT         NOT NULL,
			message     TEXT         NOT NULL,
			is_read     BOOLEAN      NOT NULL DEFAULT FALSE,
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW(),

			CONSTRAINT chk_alert_type CHECK (
				alert_type IN ('geofence', 'battery')
			)
		);
	`, "alerts table created")
}

// ─────────────────────────────────────────────────────────────
// Step 5 — Indexes
// ─────────────────────────────────────────────────────────────
func step5_indexes(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 5: Indexes ─────────────────────────────")

	indexes := []struct {
		name string
		sql  string
		why  string
	}{
		{
			name: "idx_locations_pet_time",
			sql: `CREATE INDEX IF NOT EXISTS idx_locations_pet_time
				  ON locations (pet_id, timestamp DESC, id DESC);`,
			why: "query: history and latest fix for one pet",
		},
		{
			name: "idx_locations_pet_id_seq",
			sql: `CREATE INDEX IF NOT EXISTS idx_locations_pet_id_seq
				  ON locations (pet_id, id);`,
			why: "query: live feed watermark scan",
		},
		{
			name: "idx_zones_pet_active",
			sql: `CREATE INDEX IF NOT EXISTS idx_zones_pet_active
				  ON geofence_zones (pet_id) WHERE is_active;`,
			why: "query: active zones on every ingestion",
		},
		{
			name: "idx_alerts_pet_time",
			sql: `CREATE INDEX IF NOT EXISTS idx_alerts_pet_time
				  ON alerts (pet_id, created_at DESC);`,
			why: "query: alert listing per pet",
		},
		{
			name: "idx_alerts_unread_battery",
			sql: `CREATE INDEX IF NOT EXISTS idx_alerts_unread_battery
				  ON alerts (pet_id)
				  WHERE alert_type = 'battery' AND is_read = FALSE;`,
			why: "query: battery alert dedup check (partial index)",
		},
	}

	for _, idx := range indexes {
		execOrFatal(ctx, conn, idx.sql,
			fmt.Sprintf("%-40s ← %s", idx.name, idx.why),
		)
	}
}

// ─────────────────────────────────────────────────────────────
// Step 6 — Verify everything was created
// ─────────────────────────────────────────────────────────────
func step6_verify(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 6: Verification ────────────────────────")

	tables := []string{"users", "pets", "locations", "geofence_zones", "alerts"}
	for _, table := range tables {
		var exists bool
		err := conn.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_name = $1
			)
		`, table).Scan(&exists)
		if err != nil || !exists {
			log.Fatalf("Table %s was not created: %v", table, err)
		}
		fmt.Printf("  ✓ table: %s\n", table)
	}
}

func execOrFatal(ctx context.Context, conn *pgx.Conn, sql, desc string) {
	if _, err := conn.Exec(ctx, sql); err != nil {
		log.Fatalf("Failed: %s: %v", desc, err)
	}
	fmt.Printf("  ✓ %s\n", desc)
}

func dbGetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
