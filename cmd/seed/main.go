package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowclinic/scheduling/internal/db"
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

	bg := context.Background()
	if err := seedAttendants(bg, pool, 12); err != nil {
		log.Fatalf("seed attendants: %v", err)
	}
	if err := seedRooms(bg, pool); err != nil {
		log.Fatalf("seed rooms: %v", err)
	}
	if err := seedTimeSlots(bg, pool); err != nil {
		log.Fatalf("seed time slots: %v", err)
	}
	if err := seedCatalog(bg, pool); err != nil {
		log.Fatalf("seed catalog: %v", err)
	}
	if err := seedClosedDays(bg, pool); err != nil {
		log.Fatalf("seed closed days: %v", err)
	}
	if err := seedPatients(bg, pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedAttendants(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d attendants", count)

	// Mon-Sat schedules in various shapes; Sunday is never worked.
	schedules := []struct {
		days  []int
		start int
		end   int
	}{
		{[]int{1, 2, 3, 4, 5}, 10 * 60, 18 * 60},
		{[]int{1, 3, 5, 6}, 10 * 60, 16 * 60},
		{[]int{2, 4, 6}, 12 * 60, 18 * 60},
		{[]int{1, 2, 4, 5, 6}, 10 * 60, 17 * 60},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		sched := schedules[gofakeit.Number(0, len(schedules)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO attendants (id, first_name, last_name, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, true, now(), now())
		`, id, gofakeit.FirstName(), gofakeit.LastName())
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO work_profiles (attendant_id, work_days, start_minutes, end_minutes, phone)
			VALUES ($1, $2, $3, $4, $5)
		`, id, sched.days, sched.start, sched.end, gofakeit.Phone())
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("attendants seeded")
	return nil
}

func seedRooms(ctx context.Context, pool *pgxpool.Pool) error {
	names := []string{"Treatment Room 1", "Treatment Room 2", "Treatment Room 3", "Facial Suite", "Laser Room"}
	for _, name := range names {
		_, err := pool.Exec(ctx, `
			INSERT INTO rooms (id, name, is_available)
			VALUES ($1, $2, true)
		`, uuid.New(), name)
		if err != nil {
			return err
		}
	}
	log.Println("rooms seeded")
	return nil
}

func seedTimeSlots(ctx context.Context, pool *pgxpool.Pool) error {
	// Hourly and half-hourly slots from opening until the last bookable time.
	for minutes := 10 * 60; minutes <= 17*60; minutes += 30 {
		_, err := pool.Exec(ctx, `
			INSERT INTO time_slots (id, time_minutes, is_active)
			VALUES ($1, $2, true)
			ON CONFLICT (time_minutes) DO NOTHING
		`, uuid.New(), minutes)
		if err != nil {
			return err
		}
	}
	log.Println("time slots seeded")
	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	services := []struct {
		name  string
		price int64
	}{
		{"Diamond Peel Facial", 150000},
		{"Hydrafacial", 250000},
		{"RF Skin Tightening", 300000},
		{"Underarm Laser Hair Removal", 180000},
		{"Glutathione Drip", 220000},
		{"Acne Treatment", 120000},
	}
	for _, s := range services {
		if _, err := pool.Exec(ctx, `
			INSERT INTO services (id, name, price_centavos)
			VALUES ($1, $2, $3)
		`, uuid.New(), s.name, s.price); err != nil {
			return err
		}
	}

	products := []struct {
		name  string
		price int64
		stock int
	}{
		{"Kojic Acid Soap", 25000, 120},
		{"Sunscreen SPF50", 85000, 60},
		{"Rejuvenating Set", 150000, 40},
		{"Collagen Capsules", 120000, 25},
		{"Vitamin C Serum", 95000, 50},
	}
	for _, p := range products {
		if _, err := pool.Exec(ctx, `
			INSERT INTO products (id, name, price_centavos, stock, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, uuid.New(), p.name, p.price, p.stock); err != nil {
			return err
		}
	}

	packages := []struct {
		name     string
		price    int64
		sessions int
	}{
		{"Facial Package (5 sessions)", 600000, 5},
		{"Laser Package (6 sessions)", 900000, 6},
		{"Glow Package (3 sessions)", 550000, 3},
	}
	for _, p := range packages {
		if _, err := pool.Exec(ctx, `
			INSERT INTO packages (id, name, price_centavos, sessions)
			VALUES ($1, $2, $3, $4)
		`, uuid.New(), p.name, p.price, p.sessions); err != nil {
			return err
		}
	}

	log.Println("catalog seeded")
	return nil
}

func seedClosedDays(ctx context.Context, pool *pgxpool.Pool) error {
	// A couple of upcoming holidays for exercising the closed-day rule.
	holidays := []struct {
		date   string
		reason string
	}{
		{"2026-12-25", "Christmas Day"},
		{"2026-12-30", "Rizal Day"},
		{"2027-01-01", "New Year's Day"},
	}
	for _, h := range holidays {
		if _, err := pool.Exec(ctx, `
			INSERT INTO closed_days (id, date, reason)
			VALUES ($1, $2, $3)
			ON CONFLICT (date) DO NOTHING
		`, uuid.New(), h.date, h.reason); err != nil {
			return err
		}
	}
	log.Println("closed days seeded")
	return nil
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
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, first_name, last_name, phone, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, uuid.New(), gofakeit.FirstName(), gofakeit.LastName(), gofakeit.Phone())
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
