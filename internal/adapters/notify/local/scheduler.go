// Package local implementa el notification scheduler del device: la tabla
// de triggers vive en un bucket bbolt (sobrevive reinicios, como el
// registro de notificaciones del OS) y la entrega sale por web push.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/Jarrodhale08/petpal-app/internal/platform/logger"
	"github.com/Jarrodhale08/petpal-app/internal/ports/notify"
)

const (
	bucketTriggers = "triggers" // key: reminderID/weekday -> Trigger JSON
	bucketSubs     = "subs"     // key: endpoint -> Subscription JSON
)

type Scheduler struct {
	db  *bbolt.DB
	log logger.Logger

	push *pusher // nil si web push no está configurado
}

type Options struct {
	DataDir string
	Log     logger.Logger

	// VAPID keys; si faltan, el scheduler registra triggers igual pero la
	// entrega queda deshabilitada.
	VAPIDSubject    string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
}

func Open(opts Options) (*Scheduler, error) {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := bbolt.Open(filepath.Join(opts.DataDir, "triggers.db"), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketTriggers)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(bucketSubs))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Scheduler{db: db, log: log.With(map[string]any{"component": "notify"})}
	if opts.VAPIDSubject != "" && opts.VAPIDPublicKey != "" && opts.VAPIDPrivateKey != "" {
		s.push = &pusher{
			subject: opts.VAPIDSubject,
			public:  opts.VAPIDPublicKey,
			private: opts.VAPIDPrivateKey,
			log:     s.log,
		}
	}
	return s, nil
}

func (s *Scheduler) Close() error { return s.db.Close() }

func triggerKey(k notify.Key) []byte {
	return []byte(fmt.Sprintf("%s/%d", k.ReminderID, k.Weekday))
}

func (s *Scheduler) Schedule(ctx context.Context, t notify.Trigger) (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	key := triggerKey(t.Key)
	// Misma key => reemplaza; nunca hay duplicados por key.
	if err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketTriggers)).Put(key, b)
	}); err != nil {
		return "", err
	}
	return string(key), nil
}

func (s *Scheduler) CancelByReminder(ctx context.Context, reminderID string) (int, error) {
	prefix := []byte(reminderID + "/")
	n := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket([]byte(bucketTriggers))
		c := bkt.Cursor()
		var stale [][]byte
		for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, k := range stale {
			if err := bkt.Delete(k); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

func (s *Scheduler) ListAll(ctx context.Context) ([]notify.Trigger, error) {
	out := make([]notify.Trigger, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketTriggers)).ForEach(func(_, v []byte) error {
			var t notify.Trigger
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}
			out = append(out, t)
			return nil
		})
	})
	return out, err
}

// Run dispara los triggers que vencen: chequea una vez por minuto qué
// (weekday, hour, minute) matchea el reloj local y empuja por web push.
// Bloquea hasta que ctx se cancele.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.fireDue(ctx, now)
		}
	}
}

func (s *Scheduler) fireDue(ctx context.Context, now time.Time) {
	triggers, err := s.ListAll(ctx)
	if err != nil {
		s.log.Error("list triggers", map[string]any{"err": err.Error()})
		return
	}

	for _, t := range triggers {
		if t.Key.Weekday != int(now.Weekday()) || t.Hour != now.Hour() || t.Minute != now.Minute() {
			continue
		}
		if s.push == nil {
			s.log.Info("trigger due (push not configured)", map[string]any{
				"reminder": t.Payload.ReminderID, "weekday": t.Key.Weekday,
			})
			continue
		}
		sent, failed := s.push.send(ctx, s.db, t)
		s.log.Info("trigger fired", map[string]any{
			"reminder": t.Payload.ReminderID, "sent": sent, "failed": failed,
		})
	}
}
