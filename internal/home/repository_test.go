package home

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the rooms and
// devices tables and a small seed set.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

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

		INSERT INTO rooms (name, icon) VALUES
			('Soggiorno', 'sofa'),
			('Cucina', 'pot');

		INSERT INTO devices (room_id, name, type, address_write, address_read) VALUES
			(1, 'Luce Est', 'light', '1/1/2', '1/1/3'),
			(1, 'Faro Ovest', 'light', '1/1/4', ''),
			(2, 'Tapparella Sud', 'blind', '2/1/1', '2/1/2');
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestCreateRoom(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	room := &Room{Name: "Bagno", Icon: "shower"}
	if err := repo.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if room.ID == 0 {
		t.Error("CreateRoom did not assign an ID")
	}

	got, err := repo.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if got.Name != "Bagno" || got.Icon != "shower" {
		t.Errorf("got %+v, want name Bagno icon shower", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at was not populated")
	}
}

func TestCreateRoomRequiresName(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	err := repo.CreateRoom(context.Background(), &Room{Name: "   "})
	if !errors.Is(err, ErrInvalidRoom) {
		t.Errorf("got %v, want ErrInvalidRoom", err)
	}
}

func TestListRooms(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	rooms, err := repo.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("got %d rooms, want 2", len(rooms))
	}
	if rooms[0].Name != "Soggiorno" || rooms[1].Name != "Cucina" {
		t.Errorf("rooms out of insertion order: %q, %q", rooms[0].Name, rooms[1].Name)
	}
}

func TestGetRoomNotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	_, err := repo.GetRoom(context.Background(), 999)
	if !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("got %v, want ErrRoomNotFound", err)
	}
}

func TestCreateDevice(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	device := &Device{RoomID: 2, Name: "Luce Cucina", Type: "light", AddressWrite: "2/1/5"}
	if err := repo.CreateDevice(ctx, device); err != nil {
		t.Fatalf("CreateDevice failed: %v", err)
	}
	if device.ID == 0 {
		t.Error("CreateDevice did not assign an ID")
	}

	devices, err := repo.ListDevicesByRoom(ctx, 2)
	if err != nil {
		t.Fatalf("ListDevicesByRoom failed: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices in room 2, want 2", len(devices))
	}
	last := devices[len(devices)-1]
	if last.Name != "Luce Cucina" || last.AddressWrite != "2/1/5" {
		t.Errorf("got %+v, want Luce Cucina at 2/1/5", last)
	}
}

func TestCreateDeviceValidation(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	tests := []struct {
		name    string
		device  Device
		wantErr error
	}{
		{name: "missing_name", device: Device{RoomID: 1}, wantErr: ErrInvalidDevice},
		{name: "missing_room", device: Device{Name: "Luce"}, wantErr: ErrInvalidDevice},
		{name: "unknown_room", device: Device{RoomID: 999, Name: "Luce"}, wantErr: ErrRoomNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.CreateDevice(ctx, &tt.device)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestListDevices(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	devices, err := repo.ListDevices(context.Background())
	if err != nil {
		t.Fatalf("ListDevices failed: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("got %d devices, want 3", len(devices))
	}
	if devices[1].AddressRead != "" {
		t.Errorf("write-only device has address_read %q", devices[1].AddressRead)
	}
}

func TestHomeConfig(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	// A room with no devices must still appear, with an empty slice.
	if err := repo.CreateRoom(ctx, &Room{Name: "Bagno"}); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	config, err := repo.HomeConfig(ctx)
	if err != nil {
		t.Fatalf("HomeConfig failed: %v", err)
	}
	if len(config) != 3 {
		t.Fatalf("got %d rooms, want 3", len(config))
	}

	if config[0].Name != "Soggiorno" || len(config[0].Devices) != 2 {
		t.Errorf("Soggiorno: got %d devices, want 2", len(config[0].Devices))
	}
	if config[1].Name != "Cucina" || len(config[1].Devices) != 1 {
		t.Errorf("Cucina: got %d devices, want 1", len(config[1].Devices))
	}
	if config[2].Devices == nil || len(config[2].Devices) != 0 {
		t.Errorf("empty room: got %v, want empty non-nil slice", config[2].Devices)
	}
}
