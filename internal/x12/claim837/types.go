// Package claim837 projects 837 health care claim transaction sets
// (professional and institutional) into claim documents, one per CLM loop.
package claim837

// TransactionCode is the ST01 value handled by this package
const TransactionCode = "837"

// HL03 hierarchical level codes
const (
	LevelBillingProvider = "20"
	LevelSubscriber      = "22"
	LevelPatient         = "23"
)

// NM101 entity identifier codes
const (
	EntitySubmitter       = "41"
	EntityReceiver        = "40"
	EntityBillingProvider = "85"
	EntitySubscriber      = "IL"
	EntityPayer           = "PR"
	EntityPatient         = "QC"
)

// Service line kinds
const (
	ServiceProfessional  = "professional"
	ServiceInstitutional = "institutional"
)

// Document is the decoded form of one claim
type Document struct {
	Header          Header     `json:"header"`
	Submitter       Party      `json:"submitter"`
	Receiver        Party      `json:"receiver"`
	BillingProvider Party      `json:"billing_provider"`
	Subscriber      Subscriber `json:"subscriber"`
	Payer           Party      `json:"payer"`
	Patient         Patient    `json:"patient"`
	Claim           ClaimInfo  `json:"claim"`
}

// Header carries the BHT segment
type Header struct {
	BHT BHT `json:"bht"`
}

type BHT struct {
	HierarchicalStructureCode string `json:"hierarchical_structure_code"`
	TransactionSetPurposeCode string `json:"transaction_set_purpose_code"`
	ReferenceIdentification   string `json:"reference_identification"`
	Date                      string `json:"date"`
	Time                      string `json:"time"`
	TransactionTypeCode       string `json:"transaction_type_code"`
}

// Party is an NM1 loop with its address, contacts and references
type Party struct {
	EntityIdentifierCode   string           `json:"entity_identifier_code"`
	EntityTypeQualifier    string           `json:"entity_type_qualifier"`
	LastNameOrOrganization string           `json:"last_name_or_organization"`
	FirstName              string           `json:"first_name"`
	MiddleName             string           `json:"middle_name"`
	NamePrefix             string           `json:"name_prefix"`
	NameSuffix             string           `json:"name_suffix"`
	IDCodeQualifier        string           `json:"id_code_qualifier"`
	Identifier             string           `json:"identifier"`
	AddressLine1           string           `json:"address_line_1"`
	AddressLine2           string           `json:"address_line_2"`
	CityName               string           `json:"city_name"`
	StateCode              string           `json:"state_code"`
	PostalCode             string           `json:"postal_code"`
	Contacts               []Contact        `json:"contacts"`
	Identifications        []Identification `json:"additional_identification"`
}

type Contact struct {
	ContactFunctionCd             string `json:"contact_function_cd"`
	ContactName                   string `json:"contact_name"`
	CommunicationNumberQualifier1 string `json:"communication_number_qualifier1"`
	ContactCommunication1         string `json:"contact_communication1"`
	CommunicationNumberQualifier2 string `json:"communication_number_qualifier2"`
	ContactCommunication2         string `json:"contact_communication2"`
}

type Identification struct {
	IDQualifierCode string `json:"id_qualifier_code"`
	ID              string `json:"id"`
}

// Subscriber is the 2000B/2010BA loop
type Subscriber struct {
	SBR          SBR          `json:"sbr"`
	Name         Party        `json:"name"`
	Demographics Demographics `json:"demographics"`
}

type SBR struct {
	PayerResponsibilityCode  string `json:"payer_responsibility_code"`
	IndividualRelationship   string `json:"individual_relationship_code"`
	GroupNumber              string `json:"group_number"`
	GroupName                string `json:"group_name"`
	InsuranceTypeCode        string `json:"insurance_type_code"`
	ClaimFilingIndicatorCode string `json:"claim_filing_indicator_code"`
}

// Patient is the 2000C/2010CA loop. It stays empty when the subscriber is
// the patient.
type Patient struct {
	IndividualRelationshipCode string       `json:"individual_relationship_code"`
	Name                       Party        `json:"name"`
	Demographics               Demographics `json:"demographics"`
}

// Demographics is a DMG segment
type Demographics struct {
	DateFormatQualifier string `json:"date_format_qualifier"`
	BirthDate           string `json:"birth_date"`
	GenderCode          string `json:"gender_code"`
}

// ClaimInfo is the 2300 claim loop with its service lines
type ClaimInfo struct {
	CLM                    CLM              `json:"clm"`
	Dates                  []Date           `json:"dates"`
	Diagnoses              []Diagnosis      `json:"diagnoses"`
	RelatedIdentifications []Identification `json:"related_identifications"`
	SupplementalAmount     []Amount         `json:"supplemental_amount"`
	Lines                  []ServiceLine    `json:"claim_lines"`
}

type CLM struct {
	PatientControlNumber        string `json:"patient_control_number"`
	TotalClaimChargeAmount      string `json:"total_claim_charge_amount"`
	FacilityCode                string `json:"facility_code"`
	FacilityCodeQualifier       string `json:"facility_code_qualifier"`
	ClaimFrequencyCode          string `json:"claim_frequency_code"`
	ProviderSignatureIndicator  string `json:"provider_signature_indicator"`
	AssignmentParticipationCode string `json:"assignment_participation_code"`
	BenefitsAssignmentIndicator string `json:"benefits_assignment_indicator"`
	ReleaseOfInformationCode    string `json:"release_of_information_code"`
	PatientSignatureSourceCode  string `json:"patient_signature_source_code"`
	RelatedCausesCode           string `json:"related_causes_code"`
	SpecialProgramCode          string `json:"special_program_code"`
	DelayReasonCode             string `json:"delay_reason_code"`
}

// Date is a DTP segment
type Date struct {
	DateQualifier   string `json:"date_qualifier"`
	FormatQualifier string `json:"format_qualifier"`
	Date            string `json:"date"`
}

// Diagnosis is one composite of an HI segment
type Diagnosis struct {
	CodeListQualifier string `json:"code_list_qualifier"`
	Code              string `json:"code"`
}

type Amount struct {
	AmountQualifierCode string `json:"amount_qualifier_code"`
	Amt                 string `json:"amt"`
}

// ServiceLine is one LX loop with its SV1 or SV2 segment
type ServiceLine struct {
	AssignedNumber            string           `json:"assigned_number"`
	ServiceType               string           `json:"service_type"`
	RevenueCode               string           `json:"revenue_code"`
	ProductServiceIDQualifier string           `json:"product_service_id_qualifier"`
	ProcedureCode             string           `json:"procedure_code"`
	Modifier1                 string           `json:"modifier_1"`
	Modifier2                 string           `json:"modifier_2"`
	Modifier3                 string           `json:"modifier_3"`
	Modifier4                 string           `json:"modifier_4"`
	LineChargeAmount          string           `json:"line_charge_amount"`
	UnitBasisCode             string           `json:"unit_basis_code"`
	Units                     string           `json:"units"`
	PlaceOfServiceCode        string           `json:"place_of_service_code"`
	DiagnosisCodePointers     string           `json:"diagnosis_code_pointers"`
	Dates                     []Date           `json:"dates"`
	RelatedIdentifications    []Identification `json:"related_identifications"`
}
