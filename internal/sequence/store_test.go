package sequence

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/signboard/internal/models"
)

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	database, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(&models.User{}, &models.Sequence{}, &models.SequenceUser{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	users := []models.User{
		{ID: "u1", Email: "one@example.com", Permission: models.PermissionViewer},
		{ID: "u2", Email: "two@example.com", Permission: models.PermissionEditor},
		{ID: "admin", Email: "admin@example.com", Permission: models.PermissionAdmin},
	}
	if err := database.Create(&users).Error; err != nil {
		t.Fatalf("seed users: %v", err)
	}
	return NewStore(database, zerolog.Nop()), database
}

func TestListAccessibleSlotsOrderedByName(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, seq := range []models.Sequence{
		{ID: "seq-c", Name: "Checkout"},
		{ID: "seq-a", Name: "Atrium"},
		{ID: "seq-b", Name: "Bakery"},
	} {
		seq := seq
		if err := store.Create(ctx, &seq); err != nil {
			t.Fatalf("create %s: %v", seq.ID, err)
		}
	}
	for _, id := range []string{"seq-c", "seq-a"} {
		if err := store.Assign(ctx, id, "u1"); err != nil {
			t.Fatalf("assign %s: %v", id, err)
		}
	}
	if err := store.Assign(ctx, "seq-b", "u2"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	slots, err := store.ListAccessibleSlots(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(slots) != 2 || slots[0].ID != "seq-a" || slots[1].ID != "seq-c" {
		t.Fatalf("unexpected slots %+v", slots)
	}
	if slots[0].Name != "Atrium" {
		t.Fatalf("expected name to be carried, got %+v", slots[0])
	}

	names, err := store.NamesByID(ctx, "u1")
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if names["Checkout"] != "seq-c" || len(names) != 2 {
		t.Fatalf("unexpected names %v", names)
	}

	none, err := store.ListAccessibleSlots(ctx, "nobody")
	if err != nil {
		t.Fatalf("list nobody: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", none)
	}
}

func TestHasAccess(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, &models.Sequence{ID: "seq-1", Name: "Entrance"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Assign(ctx, "seq-1", "u1"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	tests := []struct {
		user string
		want bool
	}{
		{"u1", true},
		{"u2", false},
		{"admin", true},
		{"ghost", false},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			got, err := store.HasAccess(ctx, tt.user, "seq-1")
			if err != nil {
				t.Fatalf("has access: %v", err)
			}
			if got != tt.want {
				t.Fatalf("HasAccess(%s) = %v, want %v", tt.user, got, tt.want)
			}
		})
	}
}

func TestCreateValidation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, &models.Sequence{ID: " ", Name: "x"}); !errors.Is(err, ErrInvalidSequence) {
		t.Fatalf("expected ErrInvalidSequence, got %v", err)
	}
	if err := store.Create(ctx, &models.Sequence{ID: "seq-1", Name: "One"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, &models.Sequence{ID: "seq-1", Name: "Again"}); !errors.Is(err, ErrSequenceExists) {
		t.Fatalf("expected ErrSequenceExists, got %v", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	store, database := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, &models.Sequence{ID: "seq-1", Name: "Old", Retailer: "acme"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	name := "New"
	seq, err := store.Update(ctx, "seq-1", &name, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if seq.Name != "New" || seq.Retailer != "acme" {
		t.Fatalf("unexpected sequence %+v", seq)
	}

	blank := "  "
	if _, err := store.Update(ctx, "seq-1", &blank, nil); !errors.Is(err, ErrInvalidSequence) {
		t.Fatalf("expected ErrInvalidSequence, got %v", err)
	}
	if _, err := store.Update(ctx, "missing", &name, nil); !errors.Is(err, ErrSequenceNotFound) {
		t.Fatalf("expected ErrSequenceNotFound, got %v", err)
	}

	if err := store.Assign(ctx, "seq-1", "u1"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := store.Delete(ctx, "seq-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var members int64
	database.Model(&models.SequenceUser{}).Where("seq_id = ?", "seq-1").Count(&members)
	if members != 0 {
		t.Fatalf("expected memberships removed, got %d", members)
	}
	if err := store.Delete(ctx, "seq-1"); !errors.Is(err, ErrSequenceNotFound) {
		t.Fatalf("expected ErrSequenceNotFound on second delete, got %v", err)
	}
}

func TestAssignIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, &models.Sequence{ID: "seq-1", Name: "One"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := store.Assign(ctx, "seq-1", "u1"); err != nil {
			t.Fatalf("assign #%d: %v", i, err)
		}
	}
	members, err := store.Members(ctx, "seq-1")
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 1 || members[0] != "u1" {
		t.Fatalf("unexpected members %v", members)
	}

	if err := store.Assign(ctx, "seq-1", "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := store.Assign(ctx, "missing", "u1"); !errors.Is(err, ErrSequenceNotFound) {
		t.Fatalf("expected ErrSequenceNotFound, got %v", err)
	}

	if err := store.Unassign(ctx, "seq-1", "u1"); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if err := store.Unassign(ctx, "seq-1", "u1"); err != nil {
		t.Fatalf("second unassign: %v", err)
	}
	ok, _ := store.HasAccess(ctx, "u1", "seq-1")
	if ok {
		t.Fatal("expected access revoked")
	}
}
