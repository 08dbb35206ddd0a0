package api

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/NikolovskiKristijan/ZikDomotica/internal/home"
	"github.com/NikolovskiKristijan/ZikDomotica/internal/infrastructure/logging"
)

// testHomeServer builds a Server with a real repository backed by
// in-memory SQLite.
func testHomeServer(t *testing.T) *Server {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE rooms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			icon TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		);
		CREATE TABLE devices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT '',
			address_write TEXT NOT NULL DEFAULT '',
			address_read TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	srv, err := New(Deps{
		Logger:   logging.Default(),
		Link:     &mockLink{},
		HomeRepo: home.NewSQLiteRepository(db),
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return srv
}

// containsJSONField reports whether the raw response body contains the
// given compact field fragment.
func containsJSONField(body, fragment string) bool {
	return strings.Contains(body, fragment)
}

func TestCreateAndListRooms(t *testing.T) {
	srv := testHomeServer(t)

	status, body := doJSON(t, srv, http.MethodPost, "/api/rooms",
		map[string]any{"name": "Soggiorno", "icon": "sofa"})
	if status != http.StatusCreated {
		t.Fatalf("got status %d, want 201: %v", status, body)
	}
	if body["id"] == nil || body["name"] != "Soggiorno" {
		t.Errorf("unexpected create response: %v", body)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: got status %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); !containsJSONField(got, `"name":"Soggiorno"`) {
		t.Errorf("list missing created room: %s", got)
	}
}

func TestCreateRoomRejectsBlankName(t *testing.T) {
	srv := testHomeServer(t)

	status, _ := doJSON(t, srv, http.MethodPost, "/api/rooms", map[string]any{"icon": "sofa"})
	if status != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", status)
	}
}

func TestCreateDeviceUnknownRoom(t *testing.T) {
	srv := testHomeServer(t)

	status, body := doJSON(t, srv, http.MethodPost, "/api/devices",
		map[string]any{"name": "Luce", "room_id": 42})
	if status != http.StatusNotFound {
		t.Fatalf("got status %d, want 404: %v", status, body)
	}
}

func TestHomeConfigEndpoint(t *testing.T) {
	srv := testHomeServer(t)

	if status, _ := doJSON(t, srv, http.MethodPost, "/api/rooms", map[string]any{"name": "Cucina"}); status != http.StatusCreated {
		t.Fatal("room create failed")
	}
	if status, _ := doJSON(t, srv, http.MethodPost, "/api/devices",
		map[string]any{"name": "Luce Cucina", "room_id": 1, "type": "light", "address_write": "2/1/5"}); status != http.StatusCreated {
		t.Fatal("device create failed")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/home-config", nil)
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	got := rec.Body.String()
	if !containsJSONField(got, `"name":"Cucina"`) || !containsJSONField(got, `"name":"Luce Cucina"`) {
		t.Errorf("home config missing room or device: %s", got)
	}
}

func TestHomeEndpointsWithoutStore(t *testing.T) {
	srv := testServer(t, &mockLink{})

	paths := []string{"/api/rooms", "/api/devices", "/api/home-config"}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.buildRouter().ServeHTTP(rec, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: got status %d, want 503", path, rec.Code)
		}
	}
}
