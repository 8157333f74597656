package http

import (
	"github.com/go-notify-api/internal/application/delivery"
	"github.com/go-notify-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-notify-api/internal/infrastructure/jwt"
	"github.com/go-notify-api/internal/infrastructure/smtp"
	"github.com/go-notify-api/internal/infrastructure/sns"
	"github.com/go-notify-api/internal/queue"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	NotificationRepo *dynamo.NotificationRepo
	PreferenceRepo   *dynamo.PreferenceRepo
	UnreadCountRepo  *dynamo.UnreadCountRepo
	DigestRepo       *dynamo.DigestRepo
	Mailer           smtp.Mailer
	PushSender       sns.PushSender
	Contacts         delivery.ContactDirectory
	JWTProvider      *jwtinfra.Provider
	Queue            *queue.Client // nil disables the flush trigger endpoint
}
