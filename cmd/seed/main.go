package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/juliherms/petAgendamentos/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	providers, err := seedUsers(context.Background(), pool, "provider", 20)
	if err != nil {
		log.Fatalf("seed providers: %v", err)
	}
	clients, err := seedUsers(context.Background(), pool, "client", 200)
	if err != nil {
		log.Fatalf("seed clients: %v", err)
	}
	if err := seedPets(context.Background(), pool, clients, 400); err != nil {
		log.Fatalf("seed pets: %v", err)
	}
	if err := seedServices(context.Background(), pool, providers); err != nil {
		log.Fatalf("seed services: %v", err)
	}

	log.Println("seed complete")
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, role string, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d users with role=%s", count, role)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, name, role, status, created_at, updated_at)
			VALUES ($1, $2, $3, 'active', now(), now())
		`, id, name, role)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return ids, nil
}

func seedPets(ctx context.Context, pool *pgxpool.Pool, owners []uuid.UUID, count int) error {
	log.Printf("seeding %d pets", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		owner := owners[gofakeit.Number(0, len(owners)-1)]
		name := gofakeit.PetName()

		_, err := tx.Exec(ctx, `
			INSERT INTO pets (id, owner_id, name, created_at)
			VALUES ($1, $2, $3, now())
		`, id, owner, name)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("pets seeded")
	return nil
}

func seedServices(ctx context.Context, pool *pgxpool.Pool, providers []uuid.UUID) error {
	titles := []string{
		"Full Grooming",
		"Bath and Brush",
		"Nail Trim",
		"Teeth Cleaning",
		"Flea Treatment",
		"Haircut",
		"Deshedding",
		"Ear Cleaning",
	}

	log.Printf("seeding services for %d providers", len(providers))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, provider := range providers {
		// Each provider offers a handful of services
		offered := gofakeit.Number(2, 4)
		for i := 0; i < offered; i++ {
			id := uuid.New()
			title := titles[gofakeit.Number(0, len(titles)-1)]

			_, err := tx.Exec(ctx, `
				INSERT INTO services (id, provider_id, title, active, created_at)
				VALUES ($1, $2, $3, true, now())
			`, id, provider, title)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("services seeded")
	return nil
}
