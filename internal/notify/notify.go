// Package notify sends desktop notifications for long-running outcomes,
// like a schedule save completing while the user looks elsewhere.
package notify

import "github.com/gen2brain/beeep"

func Send(title, message string) error {
	return beeep.Notify(title, message, "")
}
