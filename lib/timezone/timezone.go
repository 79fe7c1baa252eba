package timezone

import (
	"time"
	_ "time/tzdata"
)

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Sofia")
	if err != nil {
		panic(err)
	}
}

// dates printed by the MVR site are local to Sofia, parsing them in any
// other zone shifts the day when the process runs far from Bulgaria.
func Now() time.Time {
	return time.Now().In(Location)
}

// ParseDate parses a "DD.MM.YYYY" date at midnight in Sofia.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation("02.01.2006", s, Location)
}
