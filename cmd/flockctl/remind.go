package main

import (
	"fmt"

	"github.com/flockhq/flock/internal/infrastructure/logging"
	"github.com/flockhq/flock/internal/infrastructure/whatsapp"
	"github.com/flockhq/flock/internal/services"
	"github.com/spf13/cobra"
)

var remindCmd = &cobra.Command{
	Use:   "remind <meetingID>",
	Short: "Send WhatsApp reminders to everyone with a role in a meeting",
	Long: `Send a WhatsApp reminder to every person holding a role in the meeting.
The first run prints a QR code to pair the device. Failed recipients are
reported at the end; the command exits non-zero if any send failed.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemind,
}

func runRemind(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	l, err := openLocal(ctx)
	if err != nil {
		return err
	}
	defer l.Close()

	if !l.cfg.WhatsApp.Enabled {
		return fmt.Errorf("whatsapp is disabled (set WHATSAPP_ENABLED=true)")
	}

	ctx, err = l.authenticate(ctx)
	if err != nil {
		return err
	}

	notifier, err := whatsapp.NewNotifier(ctx, l.cfg.WhatsApp, logging.Component(l.log, "whatsapp"))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := notifier.Connect(ctx, out); err != nil {
		return err
	}
	defer notifier.Disconnect()

	report, err := services.NewReminderService(l.records, notifier).Remind(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Reminded %d of %d people for meeting %s\n",
		len(report.Sent), len(report.Sent)+len(report.Failures), report.MeetingID)
	for _, f := range report.Failures {
		fmt.Fprintf(out, "  failed %s (%s): %v\n", f.PersonID, f.Phone, f.Err)
	}
	return report.Err()
}
