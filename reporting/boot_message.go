// Package reporting builds the boot message and the status report.
package reporting

import (
	"fmt"

	"github.com/EasterCompany/dex-ringtone-service/log"
)

// BootMessage handles the startup message.
type BootMessage struct {
	Logger    log.Logger
	MessageID string
}

// NewBootMessage creates a new BootMessage.
func NewBootMessage(logger log.Logger) *BootMessage {
	return &BootMessage{Logger: logger}
}

// PostInitialMessage posts the initial startup message.
func (b *BootMessage) PostInitialMessage() {
	bootMessage, err := b.Logger.PostInitialMessage("ID By Ringtone is starting up...")
	if err != nil {
		b.Logger.Error("Failed to post initial boot message", err)
		return
	}
	if bootMessage != nil {
		b.MessageID = bootMessage.ID
	}
}

// Update posts an update to the startup message.
func (b *BootMessage) Update(status string) {
	if b.MessageID != "" {
		content := fmt.Sprintf("ID By Ringtone is starting up...\n%s", status)
		b.Logger.UpdateInitialMessage(b.MessageID, content)
	}
}
