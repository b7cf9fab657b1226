package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinic-scheduling/internal/db"
	"github.com/clinicore/clinic-scheduling/internal/scheduling"
	"github.com/clinicore/clinic-scheduling/internal/timeslot"
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

	doctorIDs, err := seedDoctors(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedWeeklySchedules(context.Background(), pool, doctorIDs); err != nil {
		log.Fatalf("seed schedules: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		first := gofakeit.FirstName()
		last := gofakeit.LastName()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		email := gofakeit.Email()

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, first_name, last_name, specialty, email, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
		`, id, first, last, spec, email)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

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
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}

// seedWeeklySchedules gives every doctor a Monday-Friday template with a
// morning and an afternoon block.
func seedWeeklySchedules(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) error {
	log.Printf("seeding weekly schedules for %d doctors", len(doctorIDs))

	repo := scheduling.NewPgRepository(pool)
	locker := scheduling.NewMutexLocker()
	svc := scheduling.NewService(repo, locker, nil, zerolog.Nop())

	weekdays := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	slots := []scheduling.SlotInput{
		{StartTime: "09:00", EndTime: "12:00"},
		{StartTime: "13:00", EndTime: "17:00"},
	}

	for _, id := range doctorIDs {
		for _, day := range weekdays {
			if _, err := svc.SetRecurringSchedule(ctx, id, day, slots); err != nil {
				return err
			}
		}
	}

	// A few explicit blocked days make the override precedence visible in
	// local exploration.
	blocked := timeslot.DateOf(time.Now().UTC().AddDate(0, 0, 7))
	for _, id := range doctorIDs[:min(3, len(doctorIDs))] {
		if _, err := svc.SetSingleDateSchedule(ctx, id, blocked, nil); err != nil {
			return err
		}
	}

	log.Println("weekly schedules seeded")
	return nil
}
