package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/digiunlocks/soccer-club-sub006/internal/audit/domain"
	"github.com/digiunlocks/soccer-club-sub006/internal/clock"
	paymentdomain "github.com/digiunlocks/soccer-club-sub006/internal/payment/domain"
	paymentrepo "github.com/digiunlocks/soccer-club-sub006/internal/payment/repository"
	paymentservice "github.com/digiunlocks/soccer-club-sub006/internal/payment/service"
)

type recordingAuditService struct {
	mu      sync.Mutex
	actions []string
	actors  []string
}

func (r *recordingAuditService) AuditLog(_ context.Context, actor, action, _, _ string, _ map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
	r.actors = append(r.actors, actor)
	return nil
}

func (r *recordingAuditService) List(context.Context, auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

type fixture struct {
	db    *gorm.DB
	svc   paymentdomain.Service
	audit *recordingAuditService
	clock *clock.FakeClock
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:payments_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&paymentdomain.Payment{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func setupFixture(t *testing.T, repo paymentdomain.Repository) fixture {
	t.Helper()
	db := setupTestDB(t)
	node, err := snowflake.NewNode(7)
	require.NoError(t, err)
	if repo == nil {
		repo = paymentrepo.Provide()
	}

	audit := &recordingAuditService{}
	clk := clock.NewFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	svc := paymentservice.NewService(paymentservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repo,
		AuditSvc: audit,
		Clock:    clk,
	})
	return fixture{db: db, svc: svc, audit: audit, clock: clk}
}
