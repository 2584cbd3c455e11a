package model

import (
	"errors"
	"fmt"
)

// ResolutionKind classifies why a claim could not be matched to a mandate.
type ResolutionKind string

const (
	UnknownCode         ResolutionKind = "unknown_code"
	UnknownRegion       ResolutionKind = "unknown_region"
	UnknownPayer        ResolutionKind = "unknown_payer"
	AdapterUnresolvable ResolutionKind = "adapter_unresolvable"
)

// ResolutionError reports a claim that cannot be resolved against the loaded
// tables. Callers switch on Kind to decide whether to skip, quarantine, or
// abort.
type ResolutionError struct {
	Kind   ResolutionKind
	Detail string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// DataQualityError reports claim input that is internally inconsistent, such
// as non-positive units or a paid amount against a zero mandate. It marks the
// claim itself as suspect, distinct from a table lookup miss.
type DataQualityError struct {
	Reason string
}

func (e *DataQualityError) Error() string {
	return "data quality: " + e.Reason
}

// QuarantineKind maps an evaluation error to its reporting bucket: the
// resolution kind, "data_quality", or "error" for anything else.
func QuarantineKind(err error) string {
	var re *ResolutionError
	if errors.As(err, &re) {
		return string(re.Kind)
	}
	var dq *DataQualityError
	if errors.As(err, &dq) {
		return "data_quality"
	}
	return "error"
}
