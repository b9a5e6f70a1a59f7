package local

import (
	"context"
	"encoding/json"

	webpush "github.com/SherClockHolmes/webpush-go"
	"go.etcd.io/bbolt"

	"github.com/Jarrodhale08/petpal-app/internal/platform/logger"
	"github.com/Jarrodhale08/petpal-app/internal/ports/notify"
)

// pushPayload es lo que recibe el cliente.
type pushPayload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Tag   string         `json:"tag,omitempty"`
	Data  notify.Payload `json:"data"`
}

type pusher struct {
	subject string
	public  string
	private string
	log     logger.Logger
}

// SaveSubscription registra (o reemplaza) una suscripción en el bucket de
// subs; persiste junto a los triggers.
func (s *Scheduler) SaveSubscription(ctx context.Context, sub notify.Subscription) error {
	b, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketSubs)).Put([]byte(sub.Endpoint), b)
	})
}

// RemoveSubscription borra por endpoint; false si no estaba registrada.
func (s *Scheduler) RemoveSubscription(ctx context.Context, endpoint string) (bool, error) {
	found := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketSubs))
		if b.Get([]byte(endpoint)) == nil {
			return nil
		}
		found = true
		return b.Delete([]byte(endpoint))
	})
	return found, err
}

// send empuja el payload a todas las suscripciones; cuenta éxitos y fallas
// por separado, una suscripción muerta no frena a las demás.
func (p *pusher) send(ctx context.Context, db *bbolt.DB, t notify.Trigger) (sent, failed int) {
	payload := pushPayload{
		Title: t.Title,
		Body:  t.Body,
		Tag:   t.Payload.ReminderID,
		Data:  t.Payload,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("marshal push payload", map[string]any{"err": err.Error()})
		return 0, 0
	}

	options := &webpush.Options{
		Subscriber:      p.subject,
		VAPIDPublicKey:  p.public,
		VAPIDPrivateKey: p.private,
		TTL:             30,
	}

	var subs []notify.Subscription
	_ = db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketSubs)).ForEach(func(_, v []byte) error {
			var sub notify.Subscription
			if err := json.Unmarshal(v, &sub); err == nil {
				subs = append(subs, sub)
			}
			return nil
		})
	})

	for _, sub := range subs {
		resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256dh,
				Auth:   sub.Auth,
			},
		}, options)
		if err != nil {
			failed++
			p.log.Warn("push send failed", map[string]any{"endpoint": sub.Endpoint, "err": err.Error()})
			continue
		}
		_ = resp.Body.Close()
		sent++
	}
	return sent, failed
}
