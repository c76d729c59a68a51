// Package entity defines the shared data model for the de-identification
// engine: entity categories, candidate spans produced by detectors, and the
// suppression decisions that adjudicate them.
package entity

// Category identifies the kind of identifier a candidate span may contain.
type Category string

const (
	CategoryName                Category = "name"
	CategoryPhone               Category = "phone"
	CategoryEmail               Category = "email"
	CategorySSN                 Category = "ssn"
	CategoryCreditCard          Category = "credit_card"
	CategoryMedicalRecordNumber Category = "medical_record_number"
	CategoryInsuranceID         Category = "insurance_id"
	CategoryDateOfBirth         Category = "date_of_birth"
	CategoryFacilityName        Category = "facility_name"
	CategoryAdmissionNumber     Category = "admission_number"
	CategoryAge                 Category = "age"
	CategoryOther               Category = "other"
)

// DetectorID identifies which detection pass produced a candidate span.
// The suppression engine keys several guards off the source: titled-name
// matches bypass context heuristics, NER matches get a confidence pre-check.
type DetectorID string

const (
	DetectorNER        DetectorID = "ner"
	DetectorPattern    DetectorID = "pattern"
	DetectorTitledName DetectorID = "titled_name"
	DetectorBareName   DetectorID = "bare_name"
	DetectorCustom     DetectorID = "custom"
)

// CandidateSpan is a provisional detection of a possible identifier, prior to
// suppression review. Offsets are byte offsets into the text of the pass that
// produced it. Spans are immutable values once produced.
type CandidateSpan struct {
	Start       int        `json:"start"`
	End         int        `json:"end"`
	Category    Category   `json:"category"`
	Source      DetectorID `json:"source"`
	Confidence  float64    `json:"confidence"`
	MatchedText string     `json:"-"` // Never serialize potential PHI
}

// Decision is the outcome of suppression review for a single candidate span.
// Reason is a stable tag so every decision is testable and auditable.
type Decision struct {
	Span   CandidateSpan `json:"span"`
	Allow  bool          `json:"allow"`
	Reason string        `json:"reason"`
}

// Stable decision reason tags emitted by the suppression guard chain.
const (
	ReasonStructuredIdentifier   = "structured_identifier"
	ReasonWhitelistedDrug        = "whitelisted_drug"
	ReasonWhitelistedPhrase      = "whitelisted_phrase"
	ReasonTitledNameOverride     = "titled_name_override"
	ReasonClinicalConditionShape = "clinical_condition_shape"
	ReasonMedicalContext         = "medical_context"
	ReasonCommonWordsOnly        = "common_words_only"
	ReasonUnresolvedNameLike     = "unresolved_name_like"
	ReasonLowConfidencePerson    = "low_confidence_person"
	ReasonDrugSuffixShape        = "drug_suffix_shape"
)

// ScrubResult is the detailed outcome of scrubbing a single document.
// Produced fresh per call; owned by the caller.
type ScrubResult struct {
	Original string     `json:"-"` // Never serialize original text
	Scrubbed string     `json:"scrubbed"`
	Applied  []Decision `json:"applied"`
}

// placeholders maps each category to its redaction token. Placeholders contain
// no digits and no lowercase letters, so no detection rule can re-match them;
// this is what makes the rewriter idempotent.
var placeholders = map[Category]string{
	CategoryName:                "[NAME_REDACTED]",
	CategoryPhone:               "[PHONE_REDACTED]",
	CategoryEmail:               "[EMAIL_REDACTED]",
	CategorySSN:                 "[SSN_REDACTED]",
	CategoryCreditCard:          "[CC_REDACTED]",
	CategoryMedicalRecordNumber: "[MRN_REDACTED]",
	CategoryInsuranceID:         "[INSURANCE_ID_REDACTED]",
	CategoryDateOfBirth:         "[DOB_REDACTED]",
	CategoryFacilityName:        "[HOSPITAL_REDACTED]",
	CategoryAdmissionNumber:     "[ADMISSION_REDACTED]",
	CategoryAge:                 "[AGE_REDACTED]",
	CategoryOther:               "[REDACTED]",
}

// Placeholder returns the redaction token for a category. Unknown categories
// fall back to the generic token.
func Placeholder(c Category) string {
	if p, ok := placeholders[c]; ok {
		return p
	}
	return placeholders[CategoryOther]
}

// IsNameShaped reports whether a category requires suppression review.
// Structured identifiers (SSN, phone, ...) carry no ambiguity once matched;
// only name-shaped matches can collide with clinical vocabulary.
func IsNameShaped(c Category) bool {
	return c == CategoryName || c == CategoryFacilityName
}
