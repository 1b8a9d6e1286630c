package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// cronParser: стандартные 5 полей. Префикс CRON_TZ=Area/City задаёт
// часовой пояс расписания.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseCron разбирает cron-выражение.
func ParseCron(expr string) (cron.Schedule, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}
	return schedule, nil
}
