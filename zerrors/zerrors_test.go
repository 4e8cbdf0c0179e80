// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package zerrors

import (
	"errors"
	"strings"
	"testing"
)

func TestNewZoneError(t *testing.T) {

	var err *ZoneError
	errorMessage := "this is a simple test error message"
	errorTemplate := `Invalid ZoneError, received %v:"%v", expected %v:"%v"`

	err = NewZoneError(ConnectionFailed, errorMessage)
	if (err.Code != ConnectionFailed) || (err.Text != errorMessage) {
		t.Errorf(errorTemplate, err.Code, err.Text, ConnectionFailed, errorMessage)
	}

	err = NewZoneError(ConnectionFailed)
	if (err.Code != ConnectionFailed) || (err.Text != err.Code.String()) {
		t.Errorf(errorTemplate, err.Code, err.Text, ConnectionFailed, err.Code.String())
	}

	err = NewZoneError(errorMessage)
	if (err.Code != Unknown) || (err.Text != errorMessage) {
		t.Errorf(errorTemplate, err.Code, err.Text, Unknown, errorMessage)
	}

	err = NewZoneError(errors.New(errorMessage))
	if (err.Code != Unknown) || (err.Text != errorMessage) {
		t.Errorf(errorTemplate, err.Code, err.Text, Unknown, errorMessage)
	}

	err = NewZoneError(UnsupportedFirmware, errors.New(errorMessage))
	if (err.Code != UnsupportedFirmware) || (err.Text != errorMessage) {
		t.Errorf(errorTemplate, err.Code, err.Text, UnsupportedFirmware, errorMessage)
	}

	err = NewZoneError(NewZoneError(errorMessage))
	if (err.Code != Unknown) || (err.Text != errorMessage) {
		t.Errorf(errorTemplate, err.Code, err.Text, Unknown, errorMessage)
	}

	err = NewZoneError(NewZoneError(errorMessage), ZoneOperationFailed)
	if (err.Code != ZoneOperationFailed) || (err.Text != errorMessage) {
		t.Errorf(errorTemplate, err.Code, err.Text, ZoneOperationFailed, errorMessage)
	}

	err = NewZoneError()
	if (err.Code != Internal) || (err.Text != errorMessageInvalidInputParameters) {
		t.Errorf(errorTemplate, err.Code, err.Text, Internal, errorMessageInvalidInputParameters)
	}
}

func TestFabricErrorsNameTheFabric(t *testing.T) {
	cause := NewZoneError(ConnectionFailed, "dial tcp 10.0.0.5:22: connection refused")

	tests := []struct {
		name string
		err  error
	}{
		{"lookup", NewLookupServiceError("BRCD_FAB_1", cause)},
		{"driver", NewZoneDriverError("BRCD_FAB_1", cause)},
		{"manager", NewZoneManagerError("BRCD_FAB_1", cause)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			if !strings.Contains(msg, "BRCD_FAB_1") {
				t.Errorf("error %q does not name the fabric", msg)
			}
			var zerr *ZoneError
			if !errors.As(tt.err, &zerr) {
				t.Errorf("error %q does not unwrap to a ZoneError", msg)
			} else if zerr.Code != ConnectionFailed {
				t.Errorf("unwrapped code = %v, want %v", zerr.Code, ConnectionFailed)
			}
		})
	}
}
