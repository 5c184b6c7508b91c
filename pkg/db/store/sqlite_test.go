package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/avetra/backoffice/pkg/db/models"
)

func setupStore(t *testing.T) *SQLiteStore {
	t.Helper()

	st, err := NewSQLiteStore(SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "backoffice.db"),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	if err := st.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

func TestDeleteCustomerCascades(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	customer := &models.Customer{Email: "a@example.com", Name: "Alice"}
	if err := st.CreateCustomer(ctx, customer); err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if err := st.UpsertCustomerProfile(ctx, &models.CustomerProfile{
		CustomerID: customer.ID,
		Phone:      "+1-555-0100",
	}); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := st.CreateOrder(ctx, &models.Order{
			CustomerID:   customer.ID,
			DocumentName: "doc.pdf",
			DocumentData: "ZG9j",
		}); err != nil {
			t.Fatalf("create order %d: %v", i, err)
		}
	}

	if err := st.DeleteCustomer(ctx, customer.ID); err != nil {
		t.Fatalf("DeleteCustomer() error = %v", err)
	}

	if _, err := st.GetCustomer(ctx, customer.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("customer still present: %v", err)
	}
	if _, err := st.GetCustomerProfile(ctx, customer.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("profile survived cascade: %v", err)
	}
	orders, err := st.ListOrdersByCustomer(ctx, customer.ID)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("orders survived cascade: %d", len(orders))
	}
}

func TestCustomerProfileIsUniquePerCustomer(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	customer := &models.Customer{Email: "b@example.com", Name: "Bob"}
	if err := st.CreateCustomer(ctx, customer); err != nil {
		t.Fatalf("create customer: %v", err)
	}

	if err := st.UpsertCustomerProfile(ctx, &models.CustomerProfile{
		CustomerID: customer.ID,
		Phone:      "+1-555-0100",
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := st.UpsertCustomerProfile(ctx, &models.CustomerProfile{
		CustomerID: customer.ID,
		Phone:      "+1-555-0199",
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	profile, err := st.GetCustomerProfile(ctx, customer.ID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.Phone != "+1-555-0199" {
		t.Fatalf("profile not replaced, phone = %s", profile.Phone)
	}

	var count int64
	if err := st.DB().Model(&models.CustomerProfile{}).Where("customer_id = ?", customer.ID).Count(&count).Error; err != nil {
		t.Fatalf("count profiles: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one profile, got %d", count)
	}
}

func TestUpsertSettingReplacesValue(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	if err := st.UpsertSetting(ctx, &models.Setting{Key: "k", Value: []byte(`{"a":1}`)}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := st.UpsertSetting(ctx, &models.Setting{Key: "k", Value: []byte(`{"a":2}`)}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	setting, err := st.GetSetting(ctx, "k")
	if err != nil {
		t.Fatalf("get setting: %v", err)
	}
	if string(setting.Value) != `{"a":2}` {
		t.Fatalf("last write did not win: %s", setting.Value)
	}
}

func TestQueryAuditEventsOrderAndFilter(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	actor := "admin"

	// Insert out of timestamp order, with a timestamp tie on purpose.
	for _, e := range []models.AuditEvent{
		{Level: "INFO", Action: "login", UserLogin: &actor, CreatedAt: base.Add(2 * time.Minute)},
		{Level: "INFO", Action: "login", UserLogin: &actor, CreatedAt: base},
		{Level: "INFO", Action: "login", UserLogin: &actor, CreatedAt: base},
		{Level: "ERROR", Action: "backup_failed", CreatedAt: base.Add(time.Minute)},
	} {
		event := e
		if err := st.AppendAuditEvent(ctx, &event); err != nil {
			t.Fatalf("append event: %v", err)
		}
	}

	events, err := st.QueryAuditEvents(ctx, base, base.Add(time.Hour), AuditFilter{})
	if err != nil {
		t.Fatalf("QueryAuditEvents() error = %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("QueryAuditEvents() len = %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].CreatedAt.Before(events[i-1].CreatedAt) {
			t.Fatalf("events out of timestamp order at %d", i)
		}
		if events[i].CreatedAt.Equal(events[i-1].CreatedAt) && events[i].ID < events[i-1].ID {
			t.Fatalf("tie not broken by insertion order at %d", i)
		}
	}

	filtered, err := st.QueryAuditEvents(ctx, base, base.Add(time.Hour), AuditFilter{Action: "backup_failed"})
	if err != nil {
		t.Fatalf("filtered query: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Action != "backup_failed" {
		t.Fatalf("filter by action failed: %+v", filtered)
	}

	byActor, err := st.QueryAuditEvents(ctx, base, base.Add(time.Hour), AuditFilter{UserLogin: "admin"})
	if err != nil {
		t.Fatalf("actor query: %v", err)
	}
	if len(byActor) != 3 {
		t.Fatalf("filter by actor returned %d events", len(byActor))
	}
}

func TestUniqueLoginAndEmail(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	if err := st.CreateUser(ctx, &models.User{Login: "ops", PasswordHash: "x", FullName: "Ops"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := st.CreateUser(ctx, &models.User{Login: "ops", PasswordHash: "y", FullName: "Dup"}); err == nil {
		t.Fatalf("expected duplicate login to be rejected")
	}

	if err := st.CreateCustomer(ctx, &models.Customer{Email: "c@example.com", Name: "C"}); err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if err := st.CreateCustomer(ctx, &models.Customer{Email: "c@example.com", Name: "D"}); err == nil {
		t.Fatalf("expected duplicate email to be rejected")
	}
}
