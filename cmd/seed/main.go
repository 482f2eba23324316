package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thezulux24/dentar-server/internal/catalog"
	"github.com/thezulux24/dentar-server/internal/db"
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

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedStatusCatalog(context.Background(), pool); err != nil {
		log.Fatalf("seed status catalog: %v", err)
	}
	if err := seedPeople(context.Background(), pool, "dentists", 12); err != nil {
		log.Fatalf("seed dentists: %v", err)
	}
	if err := seedPeople(context.Background(), pool, "auxiliaries", 20); err != nil {
		log.Fatalf("seed auxiliaries: %v", err)
	}
	if err := seedPeople(context.Background(), pool, "patients", 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedTreatments(context.Background(), pool); err != nil {
		log.Fatalf("seed treatments: %v", err)
	}

	log.Println("seed complete")
}

func seedStatusCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	statuses := []string{
		catalog.StatusPending,
		"Confirmed",
		catalog.StatusCompleted,
		catalog.StatusCancelled,
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, name := range statuses {
		_, err := tx.Exec(ctx, `
			INSERT INTO catalog_parameters (id, category, name, active)
			VALUES ($1, $2, $3, true)
			ON CONFLICT (category, name) DO NOTHING
		`, uuid.New(), catalog.CategoryAppointmentStatus, name)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("status catalog seeded")
	return nil
}

func seedPeople(ctx context.Context, pool *pgxpool.Pool, table string, count int) error {
	log.Printf("seeding %d rows into %s", count, table)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO `+table+` (id, full_name, avatar_url, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, uuid.New(), gofakeit.Name(), gofakeit.ImageURL(128, 128))
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("%s seeded: %d/%d", table, end, count)
	}

	return nil
}

func seedTreatments(ctx context.Context, pool *pgxpool.Pool) error {
	treatments := []string{
		"Cleaning",
		"Whitening",
		"Root Canal",
		"Extraction",
		"Filling",
		"Crown",
		"Orthodontic Adjustment",
		"Implant Consultation",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, name := range treatments {
		_, err := tx.Exec(ctx, `
			INSERT INTO treatments (id, name, created_at, updated_at)
			VALUES ($1, $2, now(), now())
		`, uuid.New(), name)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("treatments seeded")
	return nil
}
