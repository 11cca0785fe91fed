package database

import (
	"strconv"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestDSNRoundTrip(t *testing.T) {
	cases := []Config{
		{Host: "localhost", Port: "5432", User: "postgres", Password: "secret", DBName: "postgres", SSLMode: "disable"},
		{Host: "db.example.com", Port: "6543", User: "cafe user", Password: "p w'x", DBName: "cafes", SSLMode: "disable"},
		{Host: "localhost", Port: "5432", User: "postgres", Password: `back\slash 'quoted'`, DBName: "my db", SSLMode: "disable"},
	}

	for _, want := range cases {
		pc, err := pgconn.ParseConfig(want.DSN())
		if err != nil {
			t.Fatalf("ParseConfig(%q) failed: %v", want.DSN(), err)
		}
		if pc.Host != want.Host {
			t.Errorf("host: got %q want %q", pc.Host, want.Host)
		}
		if strconv.Itoa(int(pc.Port)) != want.Port {
			t.Errorf("port: got %d want %s", pc.Port, want.Port)
		}
		if pc.User != want.User {
			t.Errorf("user: got %q want %q", pc.User, want.User)
		}
		if pc.Password != want.Password {
			t.Errorf("password: got %q want %q", pc.Password, want.Password)
		}
		if pc.Database != want.DBName {
			t.Errorf("dbname: got %q want %q", pc.Database, want.DBName)
		}
	}
}
