package home

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for home configuration persistence.
type Repository interface {
	CreateRoom(ctx context.Context, room *Room) error
	ListRooms(ctx context.Context) ([]Room, error)
	GetRoom(ctx context.Context, id int64) (*Room, error)

	CreateDevice(ctx context.Context, device *Device) error
	ListDevices(ctx context.Context) ([]Device, error)
	ListDevicesByRoom(ctx context.Context, roomID int64) ([]Device, error)

	// HomeConfig returns every room with its devices nested.
	HomeConfig(ctx context.Context) ([]RoomConfig, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed home repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateRoom inserts a new room and fills in its assigned ID.
func (r *SQLiteRepository) CreateRoom(ctx context.Context, room *Room) error {
	if strings.TrimSpace(room.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRoom)
	}
	const query = `INSERT INTO rooms (name, icon) VALUES (?, ?)`
	result, err := r.db.ExecContext(ctx, query, room.Name, room.Icon)
	if err != nil {
		return fmt.Errorf("inserting room %q: %w", room.Name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading room insert id: %w", err)
	}
	room.ID = id
	return nil
}

// ListRooms returns all rooms in insertion order.
func (r *SQLiteRepository) ListRooms(ctx context.Context) ([]Room, error) {
	const query = `SELECT id, name, icon, created_at FROM rooms ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying rooms: %w", err)
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var rm Room
		var createdAt string
		if err := rows.Scan(&rm.ID, &rm.Name, &rm.Icon, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning room row: %w", err)
		}
		rm.CreatedAt = parseTime(createdAt)
		rooms = append(rooms, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating room rows: %w", err)
	}
	return rooms, nil
}

// GetRoom returns a single room by ID.
func (r *SQLiteRepository) GetRoom(ctx context.Context, id int64) (*Room, error) {
	const query = `SELECT id, name, icon, created_at FROM rooms WHERE id = ?`
	var rm Room
	var createdAt string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&rm.ID, &rm.Name, &rm.Icon, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("scanning room: %w", err)
	}
	rm.CreatedAt = parseTime(createdAt)
	return &rm, nil
}

// CreateDevice inserts a new device and fills in its assigned ID.
// The referenced room must exist.
func (r *SQLiteRepository) CreateDevice(ctx context.Context, device *Device) error {
	if strings.TrimSpace(device.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDevice)
	}
	if device.RoomID == 0 {
		return fmt.Errorf("%w: room_id is required", ErrInvalidDevice)
	}
	if _, err := r.GetRoom(ctx, device.RoomID); err != nil {
		return err
	}
	const query = `INSERT INTO devices (room_id, name, type, address_write, address_read)
		VALUES (?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query,
		device.RoomID, device.Name, device.Type, device.AddressWrite, device.AddressRead)
	if err != nil {
		return fmt.Errorf("inserting device %q: %w", device.Name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading device insert id: %w", err)
	}
	device.ID = id
	return nil
}

// ListDevices returns all devices in insertion order.
func (r *SQLiteRepository) ListDevices(ctx context.Context) ([]Device, error) {
	const query = `SELECT id, room_id, name, type, address_write, address_read, created_at
		FROM devices ORDER BY id`
	return r.queryDevices(ctx, query)
}

// ListDevicesByRoom returns the devices of a specific room.
func (r *SQLiteRepository) ListDevicesByRoom(ctx context.Context, roomID int64) ([]Device, error) {
	const query = `SELECT id, room_id, name, type, address_write, address_read, created_at
		FROM devices WHERE room_id = ? ORDER BY id`
	return r.queryDevices(ctx, query, roomID)
}

// HomeConfig returns every room with its devices nested, in a single
// pass over both tables.
func (r *SQLiteRepository) HomeConfig(ctx context.Context) ([]RoomConfig, error) {
	rooms, err := r.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	devices, err := r.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	byRoom := make(map[int64][]Device, len(rooms))
	for _, d := range devices {
		byRoom[d.RoomID] = append(byRoom[d.RoomID], d)
	}

	config := make([]RoomConfig, 0, len(rooms))
	for _, rm := range rooms {
		devs := byRoom[rm.ID]
		if devs == nil {
			devs = []Device{}
		}
		config = append(config, RoomConfig{Room: rm, Devices: devs})
	}
	return config, nil
}

// queryDevices executes a query and returns a slice of Device.
func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		var d Device
		var createdAt string
		err := rows.Scan(&d.ID, &d.RoomID, &d.Name, &d.Type,
			&d.AddressWrite, &d.AddressRead, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		d.CreatedAt = parseTime(createdAt)
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device rows: %w", err)
	}
	return devices, nil
}

// parseTime parses an ISO 8601 timestamp from SQLite.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02 15:04:05", s)
		if err != nil {
			return time.Time{}
		}
	}
	return t
}
