package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/anuragv/floodwatch/internal/model"
)

// Provider limits cap a single segment at 160 characters; templates are kept
// well under that.
const maxMessageLength = 160

// RenderMessage builds the alert text for a recipient. Qualifying levels get
// the urgent template with the recipient's first name and emergency numbers;
// everything else gets the short advisory form.
func RenderMessage(level model.RiskLevel, recipientName, area string, now time.Time) string {
	if !level.Qualifying() {
		return fmt.Sprintf("Flood Alert - %s risk in %s. Stay safe!", level, area)
	}

	firstName := recipientName
	if i := strings.IndexByte(recipientName, ' '); i > 0 {
		firstName = recipientName[:i]
	}

	msg := fmt.Sprintf("FLOOD ALERT - %s\nHi %s,\nHigh flood risk in %s.\nMove to higher ground!\nEmergency: 100/108\n%s",
		level, firstName, area, now.Format("02/01 15:04"))

	if len(msg) > maxMessageLength {
		msg = msg[:maxMessageLength]
	}
	return msg
}
