package notify

import "context"

// Key identifica un trigger: un reminder en un día de la semana.
// Weekday usa 0..6 con domingo=0.
type Key struct {
	ReminderID string `json:"reminder_id"`
	Weekday    int    `json:"weekday"`
}

// Payload viaja con la notificación para poder rutearla después.
type Payload struct {
	ReminderID string `json:"reminder_id"`
	PetID      string `json:"pet_id"`
	Type       string `json:"type"`
}

// Trigger es un registro recurrente: hora local del día, un weekday.
type Trigger struct {
	Key     Key     `json:"key"`
	Hour    int     `json:"hour"`
	Minute  int     `json:"minute"`
	Title   string  `json:"title"`
	Body    string  `json:"body"`
	Payload Payload `json:"payload"`
}

// Scheduler es la facility del OS para triggers recurrentes. La tabla de
// triggers tiene un solo writer (el schedule engine); está keyed por Key,
// re-registrar la misma Key reemplaza, cancelar lo inexistente es no-op.
type Scheduler interface {
	Schedule(ctx context.Context, t Trigger) (handle string, err error)
	CancelByReminder(ctx context.Context, reminderID string) (int, error)
	ListAll(ctx context.Context) ([]Trigger, error)
}

// Subscription es una suscripción web push registrada por el cliente.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// SubscriptionStore guarda las suscripciones a las que el scheduler empuja
// cuando un trigger dispara. Keyed por endpoint: re-registrar reemplaza.
type SubscriptionStore interface {
	SaveSubscription(ctx context.Context, sub Subscription) error
	RemoveSubscription(ctx context.Context, endpoint string) (bool, error)
}
