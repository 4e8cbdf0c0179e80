// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package zerrors

import (
	"fmt"
)

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Typed errors raised at the three layers of the zoning core.  Each one names the fabric being
// processed when the failure occurred so that callers can report which fabric's zoning is in an
// unknown state.  All of them wrap a ZoneError and support errors.Unwrap.
//
///////////////////////////////////////////////////////////////////////////////////////////////////

// LookupServiceError : SAN lookup configuration missing, or a southbound failure while querying
// nameserver info.  Fatal to the fabric being processed; never retried internally.
type LookupServiceError struct {
	Fabric string     `json:"fabric,omitempty"`
	Err    *ZoneError `json:"error"`
}

func NewLookupServiceError(fabric string, args ...interface{}) *LookupServiceError {
	return &LookupServiceError{Fabric: fabric, Err: NewZoneError(args...)}
}

func (e *LookupServiceError) Error() string {
	if e.Fabric == "" {
		return fmt.Sprintf("san lookup failed: %s", e.Err.Error())
	}
	return fmt.Sprintf("san lookup failed on fabric %s: %s", e.Fabric, e.Err.Error())
}

func (e *LookupServiceError) Unwrap() error {
	return e.Err
}

// ZoneDriverError : southbound session creation failed, firmware too old, or a zone
// create/update/delete call failed.  Fatal to the current driver call for that fabric.
type ZoneDriverError struct {
	Fabric string     `json:"fabric,omitempty"`
	Err    *ZoneError `json:"error"`
}

func NewZoneDriverError(fabric string, args ...interface{}) *ZoneDriverError {
	return &ZoneDriverError{Fabric: fabric, Err: NewZoneError(args...)}
}

func (e *ZoneDriverError) Error() string {
	return fmt.Sprintf("zone driver failed on fabric %s: %s", e.Fabric, e.Err.Error())
}

func (e *ZoneDriverError) Unwrap() error {
	return e.Err
}

// ZoneManagerError : wraps any lookup or driver error encountered while fanning a request
// across fabrics.  Identifies which fabric failed; mutations already committed on sibling
// fabrics are not rolled back.
type ZoneManagerError struct {
	Fabric string     `json:"fabric,omitempty"`
	Err    *ZoneError `json:"error"`
}

func NewZoneManagerError(fabric string, args ...interface{}) *ZoneManagerError {
	return &ZoneManagerError{Fabric: fabric, Err: NewZoneError(args...)}
}

func (e *ZoneManagerError) Error() string {
	return fmt.Sprintf("zoning failed on fabric %s: %s", e.Fabric, e.Err.Error())
}

func (e *ZoneManagerError) Unwrap() error {
	return e.Err
}
