package util

import (
	"fmt"
	"os"
	"strconv"
)

func Getenv(name, defaultValue string) string {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetenvInt(name, defaultValue string) (int, error) {
	valueStr := Getenv(name, defaultValue)
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return value, fmt.Errorf("invalid value for %s (%s): %w", name, valueStr, err)
	}
	return value, nil
}
