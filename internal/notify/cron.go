package notify

import (
	"time"

	"github.com/robfig/cron/v3"
)

// digestParser accepts the classic 5-field form (minute, hour, day of month,
// month, day of week) used by the digest_cron config setting.
var digestParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// untilNextDigest returns the time remaining until the digest schedule next
// fires. A malformed expression yields 0, which leaves the digest timer
// disarmed rather than firing immediately.
func untilNextDigest(expr string) time.Duration {
	sched, err := digestParser.Parse(expr)
	if err != nil {
		return 0
	}
	d := time.Until(sched.Next(time.Now()))
	if d < 0 {
		return 0
	}
	return d
}
