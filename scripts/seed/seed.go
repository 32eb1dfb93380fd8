package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// Seeds a test user with one pet and a live session token so the API can be
// exercised without the external auth system.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file — using system environment variables")
	}

	ctx := context.Background()

	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		seedGetEnv("DB_USER", "pettrack_user"),
		seedGetEnv("DB_PASSWORD", "pettrack_password"),
		seedGetEnv("DB_HOST", "localhost"),
		seedGetEnv("DB_PORT", "5432"),
		seedGetEnv("DB_NAME", "pettrack"),
	)

	fmt.Println("Connecting to PostgreSQL...")
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		log.Fatalf("Connection failed: %v", err)
	}
	defer conn.Close(ctx)
	fmt.Println("✓ Connected")

	client := redis.NewClient(&redis.Options{
		Addr:     seedGetEnv("REDIS_ADDR", "localhost:6379"),
		Password: seedGetEnv("REDIS_PASSWORD", ""),
		DB:       0,
	})
	defer client.Close()

	fmt.Println("Connecting to Redis...")
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Connection failed: %v\n\nMake sure Redis is running:\n  docker-compose up -d redis", err)
	}
	fmt.Println("✓ Connected")

	var userID int64
	err = conn.QueryRow(ctx, `
		INSERT INTO users (name, email)
		VALUES ('Test User', 'test@test.com')
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`).Scan(&userID)
	if err != nil {
		log.Fatalf("Failed to seed user: %v", err)
	}
	fmt.Printf("  ✓ user %d (test@test.com)\n", userID)

	id := uuid.New()
	deviceID := "ESP32_" + strings.ToUpper(hex.EncodeToString(id[:6]))
	apiKey := uuid.NewString()

	var petID int64
	err = conn.QueryRow(ctx, `
		INSERT INTO pets (user_id, name, species, breed, device_id, api_key)
		VALUES ($1, 'Rex', 'Dog', 'Labrador', $2, $3)
		RETURNING id
	`, userID, deviceID, apiKey).Scan(&petID)
	if err != nil {
		log.Fatalf("Failed to seed pet: %v", err)
	}
	fmt.Printf("  ✓ pet %d (Rex)\n", petID)
	fmt.Printf("      device_id: %s\n", deviceID)
	fmt.Printf("      api_key:   %s\n", apiKey)

	// Session key pattern: session:{token} → user ID. This is what the
	// session middleware looks up. TTL = 0 keeps the seed token alive.
	token := uuid.NewString()
	if err := client.Set(ctx, "session:"+token, userID, 0).Err(); err != nil {
		log.Fatalf("Failed to seed session: %v", err)
	}
	fmt.Printf("  ✓ session token: %s\n", token)

	fmt.Println("\n✅ Seed complete")
	fmt.Println("   Report a fix:")
	fmt.Printf("     curl -X POST localhost:8080/api/gps/update -d '{\"api_key\":\"%s\",\"latitude\":-23.55,\"longitude\":-46.63,\"battery\":85}'\n", apiKey)
}

func seedGetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
