package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"sparkvision/internal/config"
	"sparkvision/internal/logger"
	"sparkvision/internal/model"
	"sparkvision/internal/repository/sqlite"
)

type recordingViewers struct {
	mu       sync.Mutex
	messages [][]byte
}

func (v *recordingViewers) Broadcast(message []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = append(v.messages, message)
}

type fakeNotifier struct {
	mu     sync.Mutex
	bodies []string
	sid    string
	err    error
}

func (n *fakeNotifier) Send(ctx context.Context, body string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bodies = append(n.bodies, body)
	return n.sid, n.err
}

func setupManager(t *testing.T, notifier Notifier) (*Manager, *sqlite.AlertRepository, *recordingViewers) {
	t.Helper()
	tempDir := t.TempDir()

	log := logger.NewLogger(&config.Config{LogDirectory: filepath.Join(tempDir, "logs")})
	t.Cleanup(log.Close)

	db, err := sqlite.New(filepath.Join(tempDir, "tracker.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := sqlite.NewAlertRepository(db)
	viewers := &recordingViewers{}
	m := NewManager(repo, viewers, notifier, log)
	t.Cleanup(m.Stop)
	return m, repo, viewers
}

func alertPayload(t *testing.T) []byte {
	t.Helper()
	payload, err := model.NewAlertEvent(time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)).ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	return payload
}

func TestHandleAlert_StoresAndBroadcasts(t *testing.T) {
	m, repo, viewers := setupManager(t, nil)

	m.HandleAlert("userTopic", alertPayload(t))

	alerts, err := repo.GetAll(nil)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("Expected 1 stored alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.Message != model.AlertMessage || a.Topic != "userTopic" {
		t.Errorf("Unexpected alert %+v", a)
	}
	if a.Timestamp != "2026-08-01T10:00:00Z" {
		t.Errorf("Expected detector timestamp to be kept, got %s", a.Timestamp)
	}

	if len(viewers.messages) != 1 {
		t.Fatalf("Expected 1 broadcast, got %d", len(viewers.messages))
	}
	var shown map[string]interface{}
	if err := json.Unmarshal(viewers.messages[0], &shown); err != nil {
		t.Fatalf("Broadcast is not JSON: %v", err)
	}
	if shown["message"] != model.AlertMessage || shown["id"] != float64(a.ID) {
		t.Errorf("Unexpected broadcast %v", shown)
	}
}

func TestHandleAlert_RawPayload(t *testing.T) {
	m, repo, viewers := setupManager(t, nil)

	m.HandleAlert("userTopic", []byte("fire in hall B"))

	alerts, err := repo.GetAll(nil)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Message != "fire in hall B" {
		t.Errorf("Expected raw payload stored as message, got %+v", alerts)
	}
	if len(viewers.messages) != 1 {
		t.Errorf("Raw payloads should still reach viewers")
	}
}

func TestHandleAlert_SendsSMSAndStoresSid(t *testing.T) {
	notifier := &fakeNotifier{sid: "SM42"}
	m, repo, _ := setupManager(t, notifier)

	m.HandleAlert("userTopic", alertPayload(t))
	m.Wait()

	if len(notifier.bodies) != 1 || notifier.bodies[0] != model.AlertMessage {
		t.Fatalf("Expected one SMS with the alert message, got %v", notifier.bodies)
	}

	alerts, err := repo.GetAll(nil)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if alerts[0].SMSSid != "SM42" {
		t.Errorf("Expected SMS sid stored, got %q", alerts[0].SMSSid)
	}
}

func TestHandleAlert_SMSFailureIsLogged(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("twilio down")}
	m, repo, viewers := setupManager(t, notifier)

	m.HandleAlert("userTopic", alertPayload(t))
	m.Wait()

	alerts, err := repo.GetAll(nil)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(alerts) != 1 || alerts[0].SMSSid != "" {
		t.Errorf("Expected alert stored without SMS sid, got %+v", alerts)
	}
	if len(viewers.messages) != 1 {
		t.Error("SMS failure must not block the broadcast")
	}
}

func TestHandleAlert_WithoutRepository(t *testing.T) {
	log := logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
	defer log.Close()

	viewers := &recordingViewers{}
	notifier := &fakeNotifier{sid: "SM1"}
	m := NewManager(nil, viewers, notifier, log)
	defer m.Stop()

	m.HandleAlert("userTopic", alertPayload(t))
	m.Wait()

	if len(viewers.messages) != 1 || len(notifier.bodies) != 1 {
		t.Errorf("Expected broadcast and SMS without a journal, got %d/%d", len(viewers.messages), len(notifier.bodies))
	}
}
