// Package whatsapp sends reminder messages through a linked WhatsApp device.
package whatsapp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/flockhq/flock/internal/infrastructure/config"
	"github.com/flockhq/flock/internal/validation"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types/events"
)

// Notifier delivers text messages from the linked device
type Notifier struct {
	client *whatsmeow.Client
	log    zerolog.Logger
}

// NewNotifier opens the device store under cfg.DataDir. The device is paired
// on the first Connect.
func NewNotifier(ctx context.Context, cfg config.WhatsAppConfig, log zerolog.Logger) (*Notifier, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create whatsapp data dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(cfg.DataDir, "whatsmeow.db"))
	container, err := sqlstore.New(ctx, "sqlite3", dsn, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open whatsapp device store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get whatsapp device: %w", err)
	}

	n := &Notifier{
		client: whatsmeow.NewClient(device, nil),
		log:    log,
	}
	n.client.AddEventHandler(n.eventHandler)
	return n, nil
}

// Connect connects to WhatsApp. An unpaired device prints a pairing QR code
// to out and blocks until the pairing flow finishes.
func (n *Notifier) Connect(ctx context.Context, out io.Writer) error {
	if n.client.Store.ID != nil {
		if err := n.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		return nil
	}

	qrChan, err := n.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pairing channel: %w", err)
	}
	if err := n.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	for evt := range qrChan {
		switch evt.Event {
		case "code":
			q, err := qrcode.New(evt.Code, qrcode.Medium)
			if err != nil {
				fmt.Fprintf(out, "Pairing code: %s\n", evt.Code)
				continue
			}
			fmt.Fprintln(out, q.ToSmallString(false))
			fmt.Fprintln(out, "Scan the code above in WhatsApp under Settings > Linked Devices > Link a Device.")
		case "success":
			n.log.Info().Msg("whatsapp device paired")
		default:
			n.log.Warn().Str("event", evt.Event).Msg("whatsapp pairing event")
		}
	}

	if n.client.Store.ID == nil {
		return fmt.Errorf("whatsapp pairing did not complete")
	}
	return nil
}

// Disconnect disconnects from WhatsApp
func (n *Notifier) Disconnect() {
	n.client.Disconnect()
}

// Send delivers message to an E.164 number after checking that the number
// is registered on WhatsApp.
func (n *Notifier) Send(ctx context.Context, phoneE164, message string) error {
	phone, err := NormalizePhone(phoneE164)
	if err != nil {
		return err
	}

	resp, err := n.client.IsOnWhatsApp(ctx, []string{"+" + phone})
	if err != nil {
		return fmt.Errorf("failed to verify %s on whatsapp: %w", phoneE164, err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return fmt.Errorf("%s is not registered on whatsapp", phoneE164)
	}

	jid := resp[0].JID
	n.log.Debug().Str("jid", jid.String()).Msg("sending reminder")

	if _, err := n.client.SendMessage(ctx, jid, &waE2E.Message{Conversation: &message}); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", phoneE164, err)
	}
	return nil
}

// NormalizePhone checks an E.164 number and returns its digits. Spaces,
// dashes and parentheses are ignored.
func NormalizePhone(phoneE164 string) (string, error) {
	phone := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(phoneE164))

	if err := validation.E164(phone); err != nil {
		return "", fmt.Errorf("phone number %q is not in E.164 form", phoneE164)
	}
	return phone[1:], nil
}

func (n *Notifier) eventHandler(evt interface{}) {
	switch evt.(type) {
	case *events.Connected:
		n.log.Info().Msg("connected to whatsapp")
	case *events.Disconnected:
		n.log.Info().Msg("disconnected from whatsapp")
	case *events.LoggedOut:
		n.log.Warn().Msg("logged out from whatsapp; the device must be paired again")
	}
}
