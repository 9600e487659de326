package domain

import dErrors "yeirin/pkg/domain-errors"

// ConsentPurpose is a domain value that identifies why a child's data is processed.
// Invariant: the value must be one of the supported consent purposes.
//
// Usage: construct via ParseConsentPurpose at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type ConsentPurpose string

// Supported consent purposes.
const (
	ConsentPurposeCounselMatching ConsentPurpose = "counsel_matching"
	ConsentPurposeReportSharing   ConsentPurpose = "report_sharing"
	ConsentPurposeSMSNotification ConsentPurpose = "sms_notification"
	ConsentPurposeDataProcessing  ConsentPurpose = "data_processing"
)

// validConsentPurposes is the single source of truth for valid consent purposes.
var validConsentPurposes = map[ConsentPurpose]bool{
	ConsentPurposeCounselMatching: true,
	ConsentPurposeReportSharing:   true,
	ConsentPurposeSMSNotification: true,
	ConsentPurposeDataProcessing:  true,
}

// ParseConsentPurpose constructs a ConsentPurpose from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported; no
// other errors are expected.
func ParseConsentPurpose(s string) (ConsentPurpose, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "purpose cannot be empty")
	}
	p := ConsentPurpose(s)
	if !p.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid purpose")
	}
	return p, nil
}

// IsValid checks if the consent purpose is one of the supported enum values.
func (p ConsentPurpose) IsValid() bool {
	return validConsentPurposes[p]
}

// String returns the string representation of the purpose.
func (p ConsentPurpose) String() string {
	return string(p)
}
