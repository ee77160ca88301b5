package service

import (
	"errors"
	"fmt"

	"golang-sentiment-quant/internal/entity"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrExecutionNotFound = errors.New("execution history not found")
	ErrInvalidJobType    = errors.New("invalid job type")
	ErrInvalidCron       = errors.New("invalid cron expression")
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func parseCron(expr string) (cron.Schedule, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %s", ErrInvalidCron, expr, err.Error())
	}
	return schedule, nil
}

func validateJobType(t string) error {
	if !entity.JobType(t).Valid() {
		return fmt.Errorf("%w %q", ErrInvalidJobType, t)
	}
	return nil
}

// notFound translates gorm's not-found error into the given sentinel.
func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
