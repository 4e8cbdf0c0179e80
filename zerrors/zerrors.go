// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package zerrors

import (
	"fmt"
	"strconv"

	log "github.com/hpe-storage/fc-zone-libs/logger"
)

type ZoneErrorCode uint32

const (
	OK                  ZoneErrorCode = 0
	Unknown             ZoneErrorCode = 1
	InvalidArgument     ZoneErrorCode = 2
	NotFound            ZoneErrorCode = 3
	AlreadyExists       ZoneErrorCode = 4
	Internal            ZoneErrorCode = 5
	Timeout             ZoneErrorCode = 6
	ConnectionFailed    ZoneErrorCode = 7
	UnsupportedFirmware ZoneErrorCode = 8
	LookupFailure       ZoneErrorCode = 9
	ZoneOperationFailed ZoneErrorCode = 10
	_maxCode            ZoneErrorCode = 11
)

const (
	errorMessageInvalidInputParameters = "invalid input parameters"
)

// ZoneError is the common error object raised inside the zoning core.  Like the switch itself,
// it carries a small status code plus free-form text from the layer that failed.
type ZoneError struct {
	Code ZoneErrorCode `json:"code"`
	Text string        `json:"text,omitempty"`
}

// NewZoneError takes an array of objects and returns a pointer to a ZoneError object.  The
// following input parameters, in any order, are supported:
//     ZoneError     - ZoneError object
//     error         - All other error objects
//     ZoneErrorCode - zoning error code
//     string        - zoning error text
// This routine parses the input data to create and return a new ZoneError object
func NewZoneError(args ...interface{}) *ZoneError {

	// These are the optional parameters we support
	var zoneError *ZoneError
	var otherError *error
	errorCode := _maxCode
	errorMessage := ""

	// Parse the input parameters and populate local variables
	for _, arg := range args {
		switch v := arg.(type) {
		case ZoneErrorCode:
			errorCode = v
		case string:
			errorMessage = v
		case ZoneError:
			err := v
			zoneError = &err
		case *ZoneError:
			zoneError = v
		case error:
			err := v
			otherError = &err
		}
	}

	// Create a new initial ZoneError object
	err := &ZoneError{Code: _maxCode, Text: ""}

	// Populate the ZoneError Text property
	if zoneError != nil {
		err = zoneError
	} else if otherError != nil {
		err.Text = (*otherError).Error()
	} else if errorMessage != "" {
		err.Text = errorMessage
	}

	// Populate the ZoneError Code property
	if errorCode < _maxCode {
		err.Code = errorCode
	}

	// If neither an error message or an error code were provided, fail with generic error
	if (err.Code == _maxCode) && (err.Text == "") {
		return &ZoneError{Code: Internal, Text: errorMessageInvalidInputParameters}
	}

	// Handle condition where ZoneError Code property is still empty
	if err.Code == _maxCode {
		err.Code = Unknown
	}

	// Handle condition where ZoneError text property is still empty
	if err.Text == "" {
		err.Text = err.Code.String()
	}

	return err
}

func NewZoneErrorf(c ZoneErrorCode, format string, a ...interface{}) *ZoneError {
	return &ZoneError{Code: c, Text: fmt.Sprintf(format, a...)}
}

func (e *ZoneError) Error() string {
	return fmt.Sprintf("status: %d msg: %s", e.Code, e.Text)
}

func (e *ZoneError) LogAndError() ZoneError {
	log.Errorln(e.Error())
	return *e
}

// ErrorCode returns the status code contained in ZoneError
func (e *ZoneError) ErrorCode() ZoneErrorCode {
	if e == nil {
		return OK
	}
	return e.Code
}

// ErrorText returns the text contained in ZoneError
func (e *ZoneError) ErrorText() string {
	if e == nil {
		return ""
	}
	return e.Text
}

func (c ZoneErrorCode) String() string {
	switch c {
	case OK:
		return "OK"
	case Unknown:
		return "Unknown"
	case InvalidArgument:
		return "InvalidArgument"
	case NotFound:
		return "NotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case Internal:
		return "Internal"
	case Timeout:
		return "Timeout"
	case ConnectionFailed:
		return "ConnectionFailed"
	case UnsupportedFirmware:
		return "UnsupportedFirmware"
	case LookupFailure:
		return "LookupFailure"
	case ZoneOperationFailed:
		return "ZoneOperationFailed"
	default:
		return "Code(" + strconv.FormatInt(int64(c), 10) + ")"
	}
}
