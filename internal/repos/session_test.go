package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/preceptorly/feedback-backend/internal/logger"
	"github.com/preceptorly/feedback-backend/internal/types"
)

func testDB(t *testing.T) (*gorm.DB, *logger.Logger) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&types.Preceptor{},
		&types.FeedbackSession{},
		&types.StandardRecord{},
		&types.Turn{},
		&types.ReportRecord{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return db, log
}

func TestSessionRepoRoundTrip(t *testing.T) {
	db, log := testDB(t)
	repo := NewSessionRepo(db, log)
	ctx := context.Background()

	session := &types.FeedbackSession{
		ID:          uuid.New(),
		PreceptorID: uuid.New(),
		State:       types.SessionStateCollectingFeedback,
		StartedAt:   time.Now().UTC(),
	}
	if _, err := repo.Create(ctx, nil, session); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if session.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt not populated on create")
	}

	// Mutate the aggregate the way the session machine does: append turns
	// and a record, then save the whole thing.
	session.Turns = append(session.Turns,
		types.Turn{ID: uuid.New(), SessionID: session.ID, Seq: 0, Role: types.TurnRoleAssistant, Text: "welcome"},
		types.Turn{ID: uuid.New(), SessionID: session.ID, Seq: 1, Role: types.TurnRoleUser, Text: "feedback"},
	)
	record := types.StandardRecord{ID: uuid.New(), SessionID: session.ID, StandardID: 1}
	record.AppendFragment("feedback")
	quality := types.QualityVague
	record.LatestQuality = &quality
	session.Records = append(session.Records, record)

	if err := repo.Save(ctx, nil, session); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := repo.GetByID(ctx, nil, session.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded == nil {
		t.Fatalf("session not found after save")
	}
	if loaded.State != types.SessionStateCollectingFeedback {
		t.Fatalf("state = %s", loaded.State)
	}
	if len(loaded.Turns) != 2 || loaded.Turns[0].Seq != 0 || loaded.Turns[1].Seq != 1 {
		t.Fatalf("turns not loaded in order: %+v", loaded.Turns)
	}
	if len(loaded.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(loaded.Records))
	}
	got := loaded.Records[0].FragmentList()
	if len(got) != 1 || got[0] != "feedback" {
		t.Fatalf("fragments = %v", got)
	}
	if loaded.Records[0].LatestQuality == nil || *loaded.Records[0].LatestQuality != types.QualityVague {
		t.Fatalf("latest quality = %v", loaded.Records[0].LatestQuality)
	}

	// Further saves update in place rather than duplicating associations.
	loaded.Records[0].Confirmed = true
	if err := repo.Save(ctx, nil, loaded); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	reloaded, err := repo.GetByID(ctx, nil, session.ID)
	if err != nil {
		t.Fatalf("GetByID after second save: %v", err)
	}
	if len(reloaded.Records) != 1 || !reloaded.Records[0].Confirmed {
		t.Fatalf("record not updated in place: %+v", reloaded.Records)
	}
}

func TestSessionRepoGetByIDMissing(t *testing.T) {
	db, log := testDB(t)
	repo := NewSessionRepo(db, log)

	got, err := repo.GetByID(context.Background(), nil, uuid.New())
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing session, got %+v", got)
	}
}

func TestSessionRepoListByPreceptorID(t *testing.T) {
	db, log := testDB(t)
	repo := NewSessionRepo(db, log)
	ctx := context.Background()

	preceptorID := uuid.New()
	for i := 0; i < 2; i++ {
		s := &types.FeedbackSession{
			ID:          uuid.New(),
			PreceptorID: preceptorID,
			State:       types.SessionStateInitialized,
			StartedAt:   time.Now().UTC().Add(time.Duration(i) * time.Minute),
		}
		if _, err := repo.Create(ctx, nil, s); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}
	other := &types.FeedbackSession{
		ID:          uuid.New(),
		PreceptorID: uuid.New(),
		State:       types.SessionStateInitialized,
		StartedAt:   time.Now().UTC(),
	}
	if _, err := repo.Create(ctx, nil, other); err != nil {
		t.Fatalf("Create other: %v", err)
	}

	sessions, err := repo.ListByPreceptorID(ctx, nil, preceptorID)
	if err != nil {
		t.Fatalf("ListByPreceptorID: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
	if sessions[0].StartedAt.Before(sessions[1].StartedAt) {
		t.Fatalf("sessions not in newest-first order")
	}
}
