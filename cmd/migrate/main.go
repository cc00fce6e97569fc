package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"eebook.org/internal/migrate"
)

func main() {
	var (
		dir = flag.String("dir", "migrations", "directory with *.up.sql / *.down.sql files")
		dsn = flag.String("dsn", os.Getenv("EEBOOK_PG_DSN"), "PostgreSQL DSN")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("database DSN is required (flag -dsn or EEBOOK_PG_DSN)")
	}

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	mgr := migrate.NewManager(db, *dir)

	switch cmd {
	case "up":
		if err := mgr.Up(ctx); err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		log.Println("migrations applied")
	case "down":
		if err := mgr.Down(ctx); err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		log.Println("last migration rolled back")
	case "status":
		applied, err := mgr.Status(ctx)
		if err != nil {
			log.Fatalf("migrate status: %v", err)
		}
		if len(applied) == 0 {
			log.Println("no migrations applied")
			return
		}
		for _, name := range applied {
			log.Println(name)
		}
	default:
		log.Fatalf("unknown command %q (want up, down or status)", cmd)
	}
}
