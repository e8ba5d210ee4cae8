package server

import (
	"strconv"
	"time"
)

func utoa(value uint) string {
	return strconv.FormatUint(uint64(value), 10)
}

func parseUint(raw string) (uint, error) {
	value, err := strconv.ParseUint(raw, 10, 32)
	return uint(value), err
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
