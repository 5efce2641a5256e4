package database

import "testing"

func TestOpenEnablesForeignKeys(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var on int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&on); err != nil {
		t.Fatalf("read pragma: %v", err)
	}
	if on != 1 {
		t.Fatalf("foreign_keys = %d, want 1", on)
	}

	res, err := db.Exec(`INSERT INTO users (username, password_hash, nickname) VALUES ('alice', 'x', 'Alice')`)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	userID, _ := res.LastInsertId()
	if _, err := db.Exec(`INSERT INTO user_honors (user_id, honor_id, obtained_count, obtained_at)
		VALUES (?, 1, 1, CURRENT_TIMESTAMP)`, userID); err != nil {
		t.Fatalf("insert user honor: %v", err)
	}

	if _, err := db.Exec(`DELETE FROM users WHERE id = ?`, userID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM user_honors WHERE user_id = ?`, userID).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("user_honors left after delete = %d, want 0", n)
	}
}

func TestOpenRejectsOrphanRecords(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`INSERT INTO tasks (user_id, name, category, status, start_date) VALUES (999, 'x', '数学', 'incomplete', '2026-10-14')`)
	if err == nil {
		t.Fatal("expected foreign key violation for unknown user")
	}
}

func TestOpenSeedsCatalog(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM honors`).Scan(&n); err != nil {
		t.Fatalf("count honors: %v", err)
	}
	if n != 20 {
		t.Errorf("honors = %d, want 20", n)
	}
}
