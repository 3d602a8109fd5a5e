package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/digiunlocks/soccer-club-sub006/internal/audit/domain"
	"github.com/digiunlocks/soccer-club-sub006/internal/audit/repository"
	"github.com/digiunlocks/soccer-club-sub006/internal/clock"
	obscontext "github.com/digiunlocks/soccer-club-sub006/internal/observability/context"
	"github.com/digiunlocks/soccer-club-sub006/pkg/db/pagination"
)

func setupAuditService(t *testing.T) (auditdomain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()
	dsn := fmt.Sprintf("file:audit_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clk,
	})
	return svc, db, clk
}

func TestAuditLogFallsBackToContextActor(t *testing.T) {
	svc, db, _ := setupAuditService(t)
	ctx := obscontext.WithActor(context.Background(), "treasurer@club.org")
	ctx = obscontext.WithRequestID(ctx, "req-1")

	err := svc.AuditLog(ctx, "", "payment.refunded", "payment", "42", map[string]any{
		"amount":      "10.00",
		"payer_email": "parent@example.com",
	})
	require.NoError(t, err)

	var row auditdomain.AuditLog
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, "treasurer@club.org", row.Actor)
	assert.Equal(t, "p***@example.com", row.Metadata["payer_email"])
	assert.Equal(t, "req-1", row.Metadata["request_id"])
}

func TestAuditLogRejectsEmptyAction(t *testing.T) {
	svc, _, _ := setupAuditService(t)
	err := svc.AuditLog(context.Background(), "admin", " ", "payment", "1", nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	svc, _, clk := setupAuditService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.AuditLog(ctx, "admin", "payment.updated", "payment", fmt.Sprint(i), nil))
		clk.Advance(time.Minute)
	}

	resp, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Page: pagination.Page{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 2)
	assert.True(t, resp.HasMore)
	assert.Equal(t, "2", resp.AuditLogs[0].TargetID)

	start := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.List(ctx, auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}
