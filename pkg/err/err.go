package errprocess

import (
	"errors"

	"supply_chat_service/pkg/logger"
)

// Set logs errMsg and returns it as an error.
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}
