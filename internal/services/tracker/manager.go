package tracker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"sparkvision/internal/dto"
	"sparkvision/internal/logger"
	"sparkvision/internal/model"
	"sparkvision/internal/repository"
)

// Broadcaster pushes a message to connected viewers.
type Broadcaster interface {
	Broadcast(message []byte)
}

// Notifier forwards an alert text, for example as SMS, and returns the
// provider's message id.
type Notifier interface {
	Send(ctx context.Context, body string) (string, error)
}

// Manager handles alerts arriving on the alert topic: it journals them,
// pushes them to viewers and optionally sends a notification.
type Manager struct {
	alerts   repository.AlertRepository
	viewers  Broadcaster
	notifier Notifier
	logger   *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// NewManager creates a Manager. alerts and notifier may be nil.
func NewManager(alerts repository.AlertRepository, viewers Broadcaster, notifier Notifier, logger *logger.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		alerts:   alerts,
		viewers:  viewers,
		notifier: notifier,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
	}
}

// HandleAlert is the MQTT message handler. Payloads that are not alert
// JSON are still stored and shown with the raw text as message.
func (m *Manager) HandleAlert(topic string, payload []byte) {
	m.logger.Info("onMessageArrived: %s", payload)

	stored := &model.StoredAlert{
		Topic:      topic,
		Payload:    string(payload),
		ReceivedAt: m.now(),
	}

	var event model.AlertEvent
	if err := json.Unmarshal(payload, &event); err != nil || event.Message == "" {
		m.logger.Warning("Alert payload is not an alert event: %v", err)
		stored.Message = string(payload)
	} else {
		stored.Message = event.Message
		stored.Timestamp = event.Timestamp
	}

	if m.alerts != nil {
		id, err := m.alerts.Insert(stored)
		if err != nil {
			m.logger.Error("Failed to store alert: %v", err)
		} else {
			stored.ID = id
		}
	}

	if m.viewers != nil {
		message, err := json.Marshal(dto.NewAlertInfo(*stored))
		if err != nil {
			m.logger.Error("Failed to encode alert for viewers: %v", err)
		} else {
			m.viewers.Broadcast(message)
		}
	}

	if m.notifier != nil {
		m.wg.Add(1)
		go m.notify(*stored)
	}
}

func (m *Manager) notify(alert model.StoredAlert) {
	defer m.wg.Done()

	sid, err := m.notifier.Send(m.ctx, alert.Message)
	if err != nil {
		m.logger.Error("Failed to send notification: %v", err)
		return
	}

	if m.alerts != nil && alert.ID != 0 && sid != "" {
		if err := m.alerts.UpdateSMSSid(alert.ID, sid); err != nil {
			m.logger.Error("Failed to store SMS sid for alert %d: %v", alert.ID, err)
		}
	}
}

// Wait blocks until pending notifications have finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Stop cancels pending notifications and waits for them.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
	m.logger.Info("🛑 Alert tracker stopped")
}
