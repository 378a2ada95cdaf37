package push

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/parlorchat/parlor/internal/config"
	"github.com/parlorchat/parlor/internal/models"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"
)

// Notifier sends Web Push notifications over stored subscriptions. All sends
// are best effort: failures are logged and subscriptions the push service
// reports as gone are deleted.
type Notifier struct {
	db     *gorm.DB
	vapid  *config.VAPIDKeys
	logger *slog.Logger
}

func New(db *gorm.DB, vapid *config.VAPIDKeys, logger *slog.Logger) *Notifier {
	return &Notifier{
		db:     db,
		vapid:  vapid,
		logger: logger,
	}
}

// Subscribe stores a subscription for a display name, replacing any previous
// one so each name keeps a single live endpoint.
func (n *Notifier) Subscribe(sub models.PushSubscription) error {
	if err := n.db.Where("username = ?", sub.Username).Delete(&models.PushSubscription{}).Error; err != nil {
		n.logger.Warn("failed to drop old push subscriptions", "username", sub.Username, "error", err)
	}
	return n.db.Create(&sub).Error
}

// Unsubscribe removes the stored subscription matching the endpoint.
func (n *Notifier) Unsubscribe(username, endpoint string) error {
	result := n.db.Where("username = ? AND endpoint = ?", username, endpoint).Delete(&models.PushSubscription{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CallStarted implements chat.CallNotifier: everyone with a stored
// subscription, except the starter, learns a call began.
func (n *Notifier) CallStarted(roomName, starter string, isVideo bool) {
	kind := "voice"
	if isVideo {
		kind = "video"
	}
	body := fmt.Sprintf("%s started a %s call in %s", starter, kind, roomName)

	var subs []models.PushSubscription
	if err := n.db.Where("username <> ?", starter).Find(&subs).Error; err != nil {
		n.logger.Error("failed to load push subscriptions", "error", err)
		return
	}

	payload, err := json.Marshal(map[string]any{
		"title": "Parlor",
		"body":  body,
		"data":  map[string]string{"room": roomName},
	})
	if err != nil {
		return
	}

	for _, sub := range subs {
		n.send(sub, payload)
	}
}

func (n *Notifier) send(sub models.PushSubscription, payload []byte) {
	resp, err := webpush.SendNotification(payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      n.vapid.Subject,
		VAPIDPublicKey:  n.vapid.PublicKey,
		VAPIDPrivateKey: n.vapid.PrivateKey,
		TTL:             30,
	})
	if err != nil {
		n.logger.Warn("push send failed", "username", sub.Username, "error", err)
		return
	}
	defer resp.Body.Close()

	// The push service tells us when a subscription is dead.
	if resp.StatusCode == 404 || resp.StatusCode == 410 {
		n.logger.Info("removing expired push subscription", "username", sub.Username, "status", resp.StatusCode)
		n.db.Delete(&sub)
	}
}
