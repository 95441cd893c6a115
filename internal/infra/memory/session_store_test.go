package memory

import (
	"context"
	"testing"

	"trivia-bot/internal/app"
	"trivia-bot/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	manager := app.NewManager(app.ManagerConfig{Store: store, Scores: app.NewScoreBoard()})
	defer manager.Shutdown(context.Background())

	q := SampleQuestions()[0]
	session, err := manager.Create(context.Background(), "owner-1", "chan-1", q)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if got, ok := store.Get("owner-1", "chan-1"); !ok || got != session {
		t.Fatalf("expected session indexed by owner and channel")
	}
	if got, ok := store.GetByID(session.ID()); !ok || got != session {
		t.Fatalf("expected session indexed by id")
	}
	if store.Insert(session) {
		t.Fatalf("expected second insert for same owner and channel to fail")
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", store.Len())
	}

	if _, err := session.SubmitAnswer(context.Background(), "owner-1", domain.AnswerOption{Label: q.CorrectAnswer}); err != nil {
		t.Fatalf("answer: %v", err)
	}
	<-session.Done()

	if _, ok := store.Get("owner-1", "chan-1"); ok {
		t.Fatalf("expected session removed once finished")
	}
	if _, ok := store.GetByID(session.ID()); ok {
		t.Fatalf("expected id index cleared")
	}
	if store.Delete(session) {
		t.Fatalf("expected delete of a released session to be a no-op")
	}
}

func TestSessionStoreKeysByOwnerAndChannel(t *testing.T) {
	store := NewSessionStore()
	manager := app.NewManager(app.ManagerConfig{Store: store, Scores: app.NewScoreBoard()})
	defer manager.Shutdown(context.Background())

	q := SampleQuestions()[0]
	keys := [][2]string{
		{"owner-1", "chan-1"},
		{"owner-1", "chan-2"},
		{"owner-2", "chan-1"},
	}
	for _, k := range keys {
		if _, err := manager.Create(context.Background(), k[0], k[1], q); err != nil {
			t.Fatalf("create %v: %v", k, err)
		}
	}
	if store.Len() != len(keys) {
		t.Fatalf("expected %d sessions, got %d", len(keys), store.Len())
	}
}
